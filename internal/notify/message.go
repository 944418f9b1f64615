// Package notify delivers alert messages to Discord, through the bot API
// when configured and the channel webhook otherwise.
package notify

import (
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
)

const (
	ColorLow    = 0x3498DB
	ColorMedium = 0xF1C40F
	ColorHigh   = 0xE74C3C
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Message struct {
	Title       string
	Description string
	Severity    domain.Severity
	Timestamp   time.Time
	Fields      []Field
	// URL is the optional call-to-action link.
	URL string
}

// Destination is where a message goes, as configured in notification settings.
type Destination struct {
	DiscordChannelID string
	WebhookURL       string
}

func SeverityColor(s domain.Severity) int {
	switch s {
	case domain.SeverityHigh:
		return ColorHigh
	case domain.SeverityMedium:
		return ColorMedium
	default:
		return ColorLow
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type messagePayload struct {
	Embeds []embed `json:"embeds"`
}

func buildPayload(m Message) messagePayload {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	e := embed{
		Title:       m.Title,
		Description: m.Description,
		URL:         m.URL,
		Color:       SeverityColor(m.Severity),
		Timestamp:   ts.UTC().Format(time.RFC3339),
		Footer:      &embedFooter{Text: "arena-run integrity"},
	}
	for _, f := range m.Fields {
		if f.Value == "" {
			continue
		}
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: truncate(f.Value, 1024), Inline: f.Inline})
	}
	return messagePayload{Embeds: []embed{e}}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
