package devserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/bedrock"

	"github.com/neilberkman/cfchat/internal/core/models"
)

// DefaultSystemPrompt frames every conversation handled by LLMResponder.
const DefaultSystemPrompt = `You are CFanatic, an assistant that helps competitive programmers analyze their Codeforces performance, understand problems and improve their solutions. Answer concisely and include code when it helps.`

// LLMResponder answers with a langchaingo model, replaying the stored
// transcript as chat history.
type LLMResponder struct {
	model       llms.Model
	system      string
	maxTokens   int
	temperature float64
}

// NewLLMResponder wraps model. An empty system prompt uses DefaultSystemPrompt.
func NewLLMResponder(model llms.Model, system string) *LLMResponder {
	if system == "" {
		system = DefaultSystemPrompt
	}
	return &LLMResponder{
		model:       model,
		system:      system,
		maxTokens:   1024,
		temperature: 0.3,
	}
}

func (r *LLMResponder) Reply(ctx context.Context, history []models.Message, message string) (string, error) {
	resp, err := r.model.GenerateContent(ctx, buildConversation(r.system, history, message),
		llms.WithMaxTokens(r.maxTokens),
		llms.WithTemperature(r.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	reply := strings.TrimSpace(resp.Choices[0].Content)
	if reply == "" {
		return "", errors.New("llm returned an empty reply")
	}
	return reply, nil
}

func buildConversation(system string, history []models.Message, message string) []llms.MessageContent {
	conv := make([]llms.MessageContent, 0, len(history)+2)
	conv = append(conv, llms.TextParts(llms.ChatMessageTypeSystem, system))
	for _, m := range history {
		kind := llms.ChatMessageTypeHuman
		if models.ParseRole(string(m.Role)) == models.RoleAssistant {
			kind = llms.ChatMessageTypeAI
		}
		conv = append(conv, llms.TextParts(kind, m.Content))
	}
	return append(conv, llms.TextParts(llms.ChatMessageTypeHuman, message))
}

// BedrockConfig holds the AWS settings for NewBedrockResponder.
type BedrockConfig struct {
	Region          string // defaults to us-east-1
	ModelID         string // defaults to Claude 3 Haiku
	Profile         string // shared config profile (optional)
	AccessKeyID     string // explicit credentials (optional)
	SecretAccessKey string
	SystemPrompt    string
}

// NewBedrockResponder builds an LLMResponder backed by AWS Bedrock.
func NewBedrockResponder(ctx context.Context, cfg BedrockConfig) (*LLMResponder, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	model, err := bedrock.New(
		bedrock.WithModel(cfg.ModelID),
		bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock LLM: %w", err)
	}
	return NewLLMResponder(model, cfg.SystemPrompt), nil
}
