package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/logger"
)

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Client talks to the chat backend over HTTP. It holds no session state.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sessionJSON struct {
	ID                models.SessionID `json:"id"`
	Title             string           `json:"title"`
	MessageCount      int              `json:"message_count"`
	MessageCountCamel *int             `json:"messageCount"`
	UpdatedAt         string           `json:"updated_at"`
	UpdatedAtCamel    string           `json:"updatedAt"`
}

type messageJSON struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type sessionDetailJSON struct {
	sessionJSON
	Messages []messageJSON `json:"messages"`
}

type sendRequest struct {
	SessionID *models.SessionID `json:"session_id,omitempty"`
	Message   string            `json:"message"`
}

type sendResponse struct {
	SessionID      models.SessionID `json:"session_id"`
	SessionIDCamel models.SessionID `json:"sessionId"`
	Reply          *messageJSON     `json:"reply"`
	Response       string           `json:"response"`
	Session        *sessionJSON     `json:"session"`
}

func (s sessionJSON) toModel() models.Session {
	count := s.MessageCount
	if s.MessageCountCamel != nil {
		count = *s.MessageCountCamel
	}
	raw := s.UpdatedAt
	if raw == "" {
		raw = s.UpdatedAtCamel
	}
	updated, err := models.ParseTimestamp(raw)
	if err != nil {
		slog.Debug("ignoring unparseable updated_at", "sessionId", s.ID, "value", raw)
	}
	return models.Session{
		ID:           s.ID,
		Title:        s.Title,
		MessageCount: count,
		UpdatedAt:    updated,
	}
}

func (m messageJSON) toModel() models.Message {
	created, _ := models.ParseTimestamp(m.CreatedAt)
	return models.Message{
		Role:      models.ParseRole(m.Role),
		Content:   m.Content,
		CreatedAt: created,
	}
}

// ListSessions returns the user's sessions in server order.
func (c *Client) ListSessions(ctx context.Context) ([]models.Session, error) {
	var raw []sessionJSON
	if err := c.do(ctx, "list", http.MethodGet, "/chat/sessions", nil, &raw); err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(raw))
	for _, r := range raw {
		s := r.toModel()
		if err := s.Validate(); err != nil {
			slog.Warn("dropping invalid session from list", "title", s.Title, "error", err)
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// FetchSession returns one session with its transcript.
func (c *Client) FetchSession(ctx context.Context, id models.SessionID) (models.SessionDetail, error) {
	var raw sessionDetailJSON
	if err := c.do(ctx, "fetch", http.MethodGet, sessionPath(id), nil, &raw); err != nil {
		return models.SessionDetail{}, err
	}

	detail := models.SessionDetail{
		Session:  raw.sessionJSON.toModel(),
		Messages: make([]models.Message, 0, len(raw.Messages)),
	}
	if detail.Session.ID == "" {
		detail.Session.ID = id
	}
	for _, m := range raw.Messages {
		detail.Messages = append(detail.Messages, m.toModel())
	}
	if raw.MessageCount == 0 && raw.MessageCountCamel == nil {
		detail.Session.MessageCount = len(detail.Messages)
	}
	return detail, nil
}

// DeleteSession deletes a session. A missing session yields ErrNotFound;
// callers decide whether that counts as success.
func (c *Client) DeleteSession(ctx context.Context, id models.SessionID) error {
	return c.do(ctx, "delete", http.MethodDelete, sessionPath(id), nil, nil)
}

// SendMessage posts text into the active session, or into a new session the
// server creates when active is absent. It is not idempotent and is never
// retried here.
func (c *Client) SendMessage(ctx context.Context, active models.OptionalID, text string) (models.SendResult, error) {
	if text == "" {
		return models.SendResult{}, &Error{Op: "send", Kind: ErrValidation, Detail: "message is empty"}
	}

	req := sendRequest{Message: text}
	if id, ok := active.Get(); ok {
		req.SessionID = &id
	}

	var raw sendResponse
	if err := c.do(ctx, "send", http.MethodPost, "/chat", req, &raw); err != nil {
		return models.SendResult{}, err
	}

	result := models.SendResult{SessionID: raw.SessionID}
	if result.SessionID == "" {
		result.SessionID = raw.SessionIDCamel
	}
	if result.SessionID == "" {
		id, ok := active.Get()
		if !ok {
			return models.SendResult{}, &Error{Op: "send", Kind: ErrServer, Detail: "response carries no session id"}
		}
		result.SessionID = id
	}

	if raw.Reply != nil {
		result.Reply = raw.Reply.toModel()
		result.Reply.Role = models.RoleAssistant
	} else {
		result.Reply = models.Message{Role: models.RoleAssistant, Content: raw.Response}
	}

	if raw.Session != nil {
		s := raw.Session.toModel()
		if s.ID == "" {
			s.ID = result.SessionID
		}
		result.Session = &s
	}
	return result, nil
}

func sessionPath(id models.SessionID) string {
	return "/chat/sessions/" + url.PathEscape(string(id))
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	requestID := logger.NewRequestID()
	log := logger.NewRequestLogger(requestID).With("op", op, "method", method, "path", path)
	start := time.Now()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed", "error", err, "elapsed", time.Since(start))
		return &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	log.Debug("response", "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readDetail(resp.Body)
		kind := kindForStatus(resp.StatusCode)
		if kind != ErrNotFound {
			log.Warn("request rejected", "status", resp.StatusCode, "detail", detail)
		}
		return &Error{Op: op, Kind: kind, Status: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Warn("malformed response", "error", err)
		return &Error{Op: op, Kind: ErrServer, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readDetail extracts the {"detail": ...} field error responses carry,
// falling back to the trimmed body text.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}
		return string(body.Detail)
	}
	return strings.TrimSpace(string(data))
}
