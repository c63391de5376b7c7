// Package devserver is a small local stand-in for the chat backend. It speaks
// the same HTTP contract, stores sessions in SQLite and answers with a
// pluggable Responder, so the client can be developed and tested offline.
package devserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/neilberkman/cfchat/internal/core/models"
)

// titleLimit is how many characters of the first message become the title.
const titleLimit = 50

// Responder produces the assistant's reply to message given the prior history.
type Responder interface {
	Reply(ctx context.Context, history []models.Message, message string) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, history []models.Message, message string) (string, error)

func (f ResponderFunc) Reply(ctx context.Context, history []models.Message, message string) (string, error) {
	return f(ctx, history, message)
}

// EchoResponder repeats the message back.
type EchoResponder struct{}

func (EchoResponder) Reply(_ context.Context, history []models.Message, message string) (string, error) {
	return "echo: " + message, nil
}

type Server struct {
	db        *DB
	responder Responder
	token     string
}

// New returns the HTTP handler. An empty token disables authentication.
func New(db *DB, responder Responder, token string) http.Handler {
	s := &Server{db: db, responder: responder, token: token}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /chat/sessions", s.handleList)
	mux.HandleFunc("POST /chat/sessions", s.handleCreate)
	mux.HandleFunc("GET /chat/sessions/{id}", s.handleGet)
	mux.HandleFunc("DELETE /chat/sessions/{id}", s.handleDelete)
	mux.HandleFunc("POST /chat", s.handleChat)

	return logRequests(s.auth(mux))
}

type sessionOut struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    string `json:"updated_at"`
}

type messageOut struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

type chatRequest struct {
	Message   string            `json:"message"`
	SessionID *models.SessionID `json:"session_id"`
}

func toSessionOut(s models.Session) sessionOut {
	id, _ := parseID(string(s.ID))
	return sessionOut{
		ID:           id,
		Title:        s.Title,
		MessageCount: s.MessageCount,
		UpdatedAt:    s.UpdatedAt.UTC().Format(timeLayout),
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.db.ListSessions(r.Context(), ListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]sessionOut, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionOut(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.db.CreateSession(r.Context(), "New Chat")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSessionOut(sess))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "session id must be an integer")
		return
	}
	detail, found, err := s.db.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	msgs := make([]messageOut, 0, len(detail.Messages))
	for _, m := range detail.Messages {
		msgs = append(msgs, messageOut{
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt.UTC().Format(timeLayout),
		})
	}
	writeJSON(w, http.StatusOK, struct {
		sessionOut
		Messages []messageOut `json:"messages"`
	}{toSessionOut(detail.Session), msgs})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "session id must be an integer")
		return
	}
	deleted, err := s.db.DeleteSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is empty")
		return
	}

	ctx := r.Context()
	var sessionID int64
	if req.SessionID != nil {
		id, ok := parseID(string(*req.SessionID))
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "session id must be an integer")
			return
		}
		if _, found, err := s.db.GetSession(ctx, id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		} else if !found {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		sessionID = id
	} else {
		sess, err := s.db.CreateSession(ctx, titleFrom(req.Message))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sessionID, _ = parseID(string(sess.ID))
	}

	detail, _, err := s.db.GetSession(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.db.AppendMessage(ctx, sessionID, string(models.RoleUser), req.Message); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := s.responder.Reply(ctx, detail.Messages, req.Message)
	if err != nil {
		slog.Error("responder failed", "sessionId", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "reply generation failed: "+err.Error())
		return
	}
	// The production backend labels its replies "model"
	if err := s.db.AppendMessage(ctx, sessionID, "model", reply); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated, _, err := s.db.GetSession(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summary := toSessionOut(updated.Session)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"response":   reply,
		"reply":      messageOut{Role: string(models.RoleAssistant), Content: reply},
		"session":    summary,
	})
}

// titleFrom derives a session title from the first message.
func titleFrom(message string) string {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) <= titleLimit {
		return message
	}
	runes := []rune(message)
	return string(runes[:titleLimit]) + "..."
}

func (s *Server) auth(next http.Handler) http.Handler {
	if s.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("devserver request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"requestId", r.Header.Get("X-Request-ID"),
			"elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
