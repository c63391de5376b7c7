package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSessionValidation(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		wantErr bool
	}{
		{
			name: "valid session",
			session: Session{
				ID:           "42",
				Title:        "How do I solve 1800A?",
				MessageCount: 2,
				UpdatedAt:    time.Now(),
			},
			wantErr: false,
		},
		{
			name:    "untitled session is still valid",
			session: Session{ID: "43"},
			wantErr: false,
		},
		{
			name:    "missing session ID",
			session: Session{Title: "orphan"},
			wantErr: true,
		},
		{
			name:    "negative message count",
			session: Session{ID: "44", MessageCount: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionIDUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want SessionID
	}{
		{`17`, "17"},
		{`"abc-123"`, "abc-123"},
		{`null`, ""},
	}

	for _, tt := range tests {
		var got SessionID
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}

	var bad SessionID
	if err := json.Unmarshal([]byte(`{"x":1}`), &bad); err == nil {
		t.Error("Unmarshal(object) should fail")
	}
}

func TestOptionalID(t *testing.T) {
	var zero OptionalID
	if zero.IsSet() {
		t.Error("zero OptionalID should be absent")
	}
	if _, ok := None().Get(); ok {
		t.Error("None() should be absent")
	}

	// An empty string is still a present id; absence is never encoded as a value.
	empty := Some("")
	if !empty.IsSet() {
		t.Error("Some(\"\") should be present")
	}

	s := Some("s1")
	if id, ok := s.Get(); !ok || id != "s1" {
		t.Errorf("Get() = %q, %v; want s1, true", id, ok)
	}
	if !s.Is("s1") || s.Is("s2") || None().Is("") {
		t.Error("Is() mismatch")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T10:20:30Z", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2025-03-01T10:20:30.123456", time.Date(2025, 3, 1, 10, 20, 30, 123456000, time.UTC)},
		{"2025-03-01 10:20:30", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) error = %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("yesterday-ish"); err == nil {
		t.Error("ParseTimestamp should reject garbage")
	}
}

func TestParseRole(t *testing.T) {
	if ParseRole("user") != RoleUser {
		t.Error("user should map to RoleUser")
	}
	if ParseRole("model") != RoleAssistant {
		t.Error("model should map to RoleAssistant")
	}
	if ParseRole("assistant") != RoleAssistant {
		t.Error("assistant should map to RoleAssistant")
	}
}

func TestDisplayTitle(t *testing.T) {
	s := Session{ID: "0123456789abcdef"}
	if got := s.DisplayTitle(); got != "Session 0123456789ab" {
		t.Errorf("DisplayTitle() = %q", got)
	}
	s.Title = "  Binary search  "
	if got := s.DisplayTitle(); got != "Binary search" {
		t.Errorf("DisplayTitle() = %q", got)
	}
}

func TestSessionIDShortKeepsWholeCharacters(t *testing.T) {
	id := SessionID("セッション識別子-0123")
	if got := id.Short(5); got != "セッション" {
		t.Errorf("Short(5) = %q", got)
	}
	if got := id.Short(100); got != string(id) {
		t.Errorf("Short(100) = %q", got)
	}
	s := Session{ID: "ümlaut-ïd-ünicode-1"}
	if got := s.DisplayTitle(); got != "Session ümlaut-ïd-ün" {
		t.Errorf("DisplayTitle() = %q", got)
	}
}
