package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ashureev/livechat/internal/conversation"
	"github.com/ashureev/livechat/internal/domain"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		args    string
		want    domain.VisitorInfo
		wantErr bool
	}{
		{" Ada ada@example.com", domain.VisitorInfo{Name: "Ada", Email: "ada@example.com"}, false},
		{"Ada ada@example.com +15550100", domain.VisitorInfo{Name: "Ada", Email: "ada@example.com", Phone: "+15550100"}, false},
		{"Ada", domain.VisitorInfo{}, true},
		{"", domain.VisitorInfo{}, true},
		{"a b c d", domain.VisitorInfo{}, true},
	}

	for _, tt := range tests {
		got, err := parseInfo(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseInfo(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseInfo(%q) = %+v, want %+v", tt.args, got, tt.want)
		}
	}
}

func TestRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)

	r.render(conversation.Snapshot{Messages: []domain.Message{
		{ID: "welcome", Text: "Hi!", Author: domain.AuthorAgent},
		{ID: "msg-2", Text: "Hello", Author: domain.AuthorUser, Status: domain.StatusSending},
	}})
	r.render(conversation.Snapshot{
		Messages: []domain.Message{
			{ID: "welcome", Text: "Hi!", Author: domain.AuthorAgent},
			{ID: "msg-2", Text: "Hello", Author: domain.AuthorUser, Status: domain.StatusSeen},
		},
		AgentTyping: true,
	})

	want := strings.Join([]string{
		"agent: Hi!",
		"you: Hello [sending]",
		"  [seen] Hello",
		"agent is typing...",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}
