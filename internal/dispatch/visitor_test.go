package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/ashureev/livechat/internal/connection"
	"github.com/ashureev/livechat/internal/conversation"
	"github.com/ashureev/livechat/internal/domain"
)

func TestSubmitVisitorInfo_Validation(t *testing.T) {
	tests := []struct {
		name string
		info domain.VisitorInfo
	}{
		{"missing name", domain.VisitorInfo{Email: "ada@example.com"}},
		{"missing email", domain.VisitorInfo{Name: "Ada"}},
		{"blank name", domain.VisitorInfo{Name: "   ", Email: "ada@example.com"}},
		{"bad email", domain.VisitorInfo{Name: "Ada", Email: "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, conv := newTestDispatcher(nil, &fakeFallback{})
			err := d.SubmitVisitorInfo(context.Background(), tt.info)
			if !errors.Is(err, ErrVisitorInfoInvalid) {
				t.Fatalf("expected ErrVisitorInfoInvalid, got %v", err)
			}
			if d.VisitorInfo() != nil {
				t.Error("expected nothing stored")
			}
			if n := len(conv.Snapshot().Messages); n != 0 {
				t.Errorf("expected empty conversation, got %d messages", n)
			}
		})
	}
}

func TestSubmitVisitorInfo_SeedsConversation(t *testing.T) {
	fb := &fakeFallback{}
	d, conv := newTestDispatcher(nil, fb)
	defer d.Close()

	// Nothing exists until the form is submitted.
	if n := len(conv.Snapshot().Messages); n != 0 {
		t.Fatalf("expected empty log before submission, got %d", n)
	}

	info := domain.VisitorInfo{Name: " Ada ", Email: "ada@example.com", Phone: "+1 555"}
	if err := d.SubmitVisitorInfo(context.Background(), info); err != nil {
		t.Fatalf("SubmitVisitorInfo failed: %v", err)
	}

	snap := conv.Snapshot()
	if len(snap.Messages) != 1 || snap.Messages[0].ID != conversation.WelcomeID || snap.Messages[0].Text != "Welcome!" {
		t.Errorf("expected welcome seeded, got %+v", snap.Messages)
	}

	if _, err := d.Send(context.Background(), "Hi"); err != nil {
		t.Fatal(err)
	}
	got := fb.requests[0].UserInfo
	if got == nil || got.Name != "Ada" || got.Email != "ada@example.com" {
		t.Errorf("expected visitor info on fallback request, got %+v", got)
	}
}

func TestSubmitVisitorInfo_AnnouncesOnLiveChannel(t *testing.T) {
	live := &fakeLive{state: connection.Live}
	d, _ := newTestDispatcher(live, &fakeFallback{})

	info := domain.VisitorInfo{Name: "Ada", Email: "ada@example.com"}
	if err := d.SubmitVisitorInfo(context.Background(), info); err != nil {
		t.Fatal(err)
	}
	frame, ok := live.frames[0].(connection.InitChatFrame)
	if !ok {
		t.Fatalf("expected InitChatFrame, got %T", live.frames[0])
	}
	if frame.Action != "InitChat" || frame.SellerID != "seller-1" || frame.UserInfo != info {
		t.Errorf("unexpected frame %+v", frame)
	}
}

func TestSubmitVisitorInfo_OptionalEmailStillChecked(t *testing.T) {
	conv := conversation.New(conversation.Options{})
	d := New(Options{Conversation: conv, RequiredFields: RequiredFields{}})

	if err := d.SubmitVisitorInfo(context.Background(), domain.VisitorInfo{}); err != nil {
		t.Errorf("expected empty optional info to pass, got %v", err)
	}
	err := d.SubmitVisitorInfo(context.Background(), domain.VisitorInfo{Email: "nope"})
	if !errors.Is(err, ErrVisitorInfoInvalid) {
		t.Errorf("expected malformed optional email to fail, got %v", err)
	}
}
