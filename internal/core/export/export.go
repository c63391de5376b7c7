// Package export renders a session transcript as markdown, JSON or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/neilberkman/cfchat/internal/core/models"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts md, markdown, json, yaml and yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q (want md, json or yaml)", s)
}

// Ext is the file extension without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Exporter writes one session to w.
type Exporter func(w io.Writer, detail models.SessionDetail) error

// ForFormat returns the exporter for format. tmpl is the mustache template
// used for markdown.
func ForFormat(format Format, tmpl string) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return func(w io.Writer, d models.SessionDetail) error {
			return Markdown(w, d, tmpl)
		}, nil
	case FormatJSON:
		return JSON, nil
	case FormatYAML:
		return YAML, nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// Markdown renders detail through a mustache template.
func Markdown(w io.Writer, detail models.SessionDetail, tmpl string) error {
	out, err := mustache.Render(tmpl, templateData(detail, time.Now()))
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func templateData(detail models.SessionDetail, now time.Time) map[string]interface{} {
	s := detail.Session

	updated, ago := "unknown", "unknown"
	if !s.UpdatedAt.IsZero() {
		updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
		ago = humanize.RelTime(s.UpdatedAt, now, "ago", "from now")
	}

	messages := make([]map[string]interface{}, len(detail.Messages))
	for i, m := range detail.Messages {
		messages[i] = map[string]interface{}{
			"role":    string(m.Role),
			"label":   Label(m.Role),
			"content": m.Content,
			"is_user": m.Role == models.RoleUser,
		}
	}

	count := s.MessageCount
	if count < len(detail.Messages) {
		count = len(detail.Messages)
	}

	return map[string]interface{}{
		"id":            s.ID.String(),
		"title":         s.DisplayTitle(),
		"updated":       updated,
		"updated_ago":   ago,
		"message_count": count,
		"messages":      messages,
	}
}

// Label is the speaker name shown for a role.
func Label(r models.Role) string {
	if r == models.RoleUser {
		return "You"
	}
	return "Assistant"
}

type document struct {
	ID           models.SessionID `json:"id" yaml:"id"`
	Title        string           `json:"title" yaml:"title"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	MessageCount int              `json:"message_count" yaml:"message_count"`
	Messages     []models.Message `json:"messages" yaml:"messages"`
}

func newDocument(detail models.SessionDetail) document {
	doc := document{
		ID:           detail.Session.ID,
		Title:        detail.Session.Title,
		MessageCount: len(detail.Messages),
		Messages:     detail.Messages,
	}
	if doc.Messages == nil {
		doc.Messages = []models.Message{}
	}
	if !detail.Session.UpdatedAt.IsZero() {
		t := detail.Session.UpdatedAt
		doc.UpdatedAt = &t
	}
	return doc
}

// JSON writes detail as indented JSON.
func JSON(w io.Writer, detail models.SessionDetail) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(detail))
}

// YAML writes detail as a YAML document.
func YAML(w io.Writer, detail models.SessionDetail) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(detail)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
