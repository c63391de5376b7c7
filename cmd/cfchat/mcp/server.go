package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/neilberkman/cfchat/internal/core/controller"
	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/core/search"
)

// ListSessionsArgs defines arguments for the list_sessions tool
type ListSessionsArgs struct {
	Query string `json:"query,omitempty"`
	Since string `json:"since,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// SessionArgs identifies one session
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// SendMessageArgs defines arguments for the send_message tool
type SendMessageArgs struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// SessionSummary represents a session in the list view
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	Active       bool   `json:"active,omitempty"`
}

// MessageDetail represents a single transcript entry
type MessageDetail struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionDetail is a session with its full transcript
type SessionDetail struct {
	SessionID string          `json:"session_id"`
	Title     string          `json:"title"`
	Messages  []MessageDetail `json:"messages"`
}

// SendResult is the reply to send_message
type SendResult struct {
	SessionID string `json:"session_id"`
	Created   bool   `json:"created"`
	Reply     string `json:"reply"`
}

type handler = server.ToolHandlerFunc

// NewServer registers the session tools against ctrl.
func NewServer(ctrl *controller.Controller, version string) *server.MCPServer {
	s := server.NewMCPServer("cfchat", version)

	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List recent chat sessions, newest first"),
		mcp.WithString("query",
			mcp.Description("Filter by title text. Supports after:<date> and before:<date> tokens")),
		mcp.WithString("since",
			mcp.Description("Only sessions updated after this date (e.g. '2025-01-01' or 'yesterday')")),
		mcp.WithNumber("limit",
			mcp.Description("Max sessions to return (default: all the server returns)")),
	)
	s.AddTool(listTool, makeListSessionsHandler(ctrl))

	getTool := mcp.NewTool("get_session",
		mcp.WithDescription("Open a session and return its full transcript. Later send_message calls without a session_id continue this session."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id from list_sessions")),
	)
	s.AddTool(getTool, makeGetSessionHandler(ctrl))

	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a message and return the assistant's reply. Continues the open session, or starts a new one after new_chat."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Message text")),
		mcp.WithString("session_id",
			mcp.Description("Session to continue; opens it first if it is not the open session")),
	)
	s.AddTool(sendTool, makeSendMessageHandler(ctrl))

	deleteTool := mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a session. Deleting a session that no longer exists succeeds."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id to delete")),
	)
	s.AddTool(deleteTool, makeDeleteSessionHandler(ctrl))

	newChatTool := mcp.NewTool("new_chat",
		mcp.WithDescription("Start a new chat. The session is created by the next send_message."),
	)
	s.AddTool(newChatTool, makeNewChatHandler(ctrl))

	return s
}

// StartServer serves the session tools over stdio
func StartServer(ctrl *controller.Controller, version string) error {
	return server.ServeStdio(NewServer(ctrl, version))
}

func parseArgs(request mcp.CallToolRequest, args any) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, args)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func makeListSessionsHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListSessionsArgs
		if err := parseArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		now := time.Now()
		filters := search.ParseFilters(args.Query, now)
		if args.Since != "" {
			since, err := search.ParseDate(args.Since, now)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid since: %v", err)), nil
			}
			filters.After, filters.HasAfter = since, true
		}

		if err := ctrl.RefreshSessions(ctx); err != nil && !errors.Is(err, controller.ErrSuperseded) {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}

		st := ctrl.State()
		sessions := filters.Apply(st.Sessions)
		if args.Limit > 0 && len(sessions) > args.Limit {
			sessions = sessions[:args.Limit]
		}

		results := make([]SessionSummary, 0, len(sessions))
		for _, s := range sessions {
			summary := SessionSummary{
				SessionID:    s.ID.String(),
				Title:        s.DisplayTitle(),
				MessageCount: s.MessageCount,
				Active:       st.Active.Is(s.ID),
			}
			if !s.UpdatedAt.IsZero() {
				summary.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
			}
			results = append(results, summary)
		}

		return jsonResult(map[string]interface{}{
			"sessions": results,
		})
	}
}

func makeGetSessionHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SessionArgs
		if err := parseArgs(request, &args); err != nil || args.SessionID == "" {
			return mcp.NewToolResultError("session_id is required"), nil
		}

		id := models.SessionID(args.SessionID)
		if err := ctrl.SelectSession(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to open session: %v", err)), nil
		}

		st := ctrl.State()
		detail := SessionDetail{
			SessionID: args.SessionID,
			Messages:  make([]MessageDetail, 0, len(st.Transcript)),
		}
		if s, ok := st.ActiveSession(); ok {
			detail.Title = s.DisplayTitle()
		}
		for _, m := range st.Transcript {
			detail.Messages = append(detail.Messages, MessageDetail{Role: string(m.Role), Content: m.Content})
		}
		return jsonResult(detail)
	}
}

func makeSendMessageHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SendMessageArgs
		if err := parseArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		if args.SessionID != "" {
			id := models.SessionID(args.SessionID)
			if !ctrl.State().Active.Is(id) {
				if err := ctrl.SelectSession(ctx, id); err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("failed to open session: %v", err)), nil
				}
			}
		}

		created := !ctrl.State().Active.IsSet()
		result, err := ctrl.SendMessage(ctx, args.Message)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("send failed: %v", err)), nil
		}

		return jsonResult(SendResult{
			SessionID: result.SessionID.String(),
			Created:   created,
			Reply:     result.Reply.Content,
		})
	}
}

func makeDeleteSessionHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SessionArgs
		if err := parseArgs(request, &args); err != nil || args.SessionID == "" {
			return mcp.NewToolResultError("session_id is required"), nil
		}

		if err := ctrl.DeleteSession(ctx, models.SessionID(args.SessionID)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted session %s", args.SessionID)), nil
	}
}

func makeNewChatHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctrl.StartNewChat()
		return mcp.NewToolResultText("Started a new chat"), nil
	}
}
