package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionID is the server-assigned identifier of a chat session.
// The backend may send it as a JSON number or a string; both decode here.
type SessionID string

func (id *SessionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SessionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	*id = SessionID(n.String())
	return nil
}

func (id SessionID) String() string {
	return string(id)
}

// Short returns the first n characters of the id for display.
func (id SessionID) Short(n int) string {
	runes := []rune(string(id))
	if len(runes) <= n {
		return string(id)
	}
	return string(runes[:n])
}

// OptionalID is a session id that may be absent. The zero value is absent,
// which means "new chat, not yet persisted".
type OptionalID struct {
	id  SessionID
	set bool
}

// Some wraps a server-assigned id.
func Some(id SessionID) OptionalID {
	return OptionalID{id: id, set: true}
}

// None returns the absent id.
func None() OptionalID {
	return OptionalID{}
}

// Get returns the id and whether it is present.
func (o OptionalID) Get() (SessionID, bool) {
	return o.id, o.set
}

func (o OptionalID) IsSet() bool {
	return o.set
}

// Is reports whether o holds exactly id.
func (o OptionalID) Is(id SessionID) bool {
	return o.set && o.id == id
}

func (o OptionalID) String() string {
	if !o.set {
		return "<new chat>"
	}
	return string(o.id)
}

// Session is the locally cached summary of a server-owned chat session.
type Session struct {
	ID           SessionID `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// Validate checks the fields every stored session must carry
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.MessageCount < 0 {
		return errors.New("message count must not be negative")
	}
	return nil
}

// DisplayTitle falls back to the id when the server has not generated a title yet.
func (s Session) DisplayTitle() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return "Session " + s.ID.Short(12)
}

// SessionDetail is a session together with its full transcript.
type SessionDetail struct {
	Session  Session   `json:"session" yaml:"session"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// SendResult is what a completed message round trip returns.
type SendResult struct {
	SessionID SessionID
	Reply     Message
	// Session is nil when the server did not include a summary.
	Session *Session
}

// timestampLayouts covers RFC 3339 plus Python isoformat() without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp formats the backend is known to emit.
// Zone-less values are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
