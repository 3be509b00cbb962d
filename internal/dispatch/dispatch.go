// Package dispatch is the single entry point for visitor messages. It picks the transport,
// performs the send and records the outcome in the conversation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/livechat/internal/backend"
	"github.com/ashureev/livechat/internal/connection"
	"github.com/ashureev/livechat/internal/domain"
	"github.com/ashureev/livechat/internal/shared"
)

// Default delays for the simulated agent.
const (
	DefaultSeenDelay       = time.Second
	DefaultAgentReplyDelay = 2 * time.Second
)

// DefaultReplies are the canned acknowledgements used when no live agent channel exists.
var DefaultReplies = []string{
	"Thanks for reaching out! I'm here to help you. ✨",
	"Great question! Let me get you the perfect solution. 🚀",
	"I'd be happy to assist you with that! 💫",
	"Absolutely! I'm on it right away. 🌟",
}

var (
	// ErrSendRejected is returned when neither transport accepted the message.
	ErrSendRejected = errors.New("message rejected")
	// ErrEmptyMessage is returned for blank input. Nothing is appended.
	ErrEmptyMessage = errors.New("message is empty")
)

// Outcome is the result of a send.
type Outcome int

const (
	Rejected Outcome = iota
	Accepted
)

func (o Outcome) String() string {
	if o == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Live is the streaming side of the connection manager.
type Live interface {
	State() connection.State
	SendFrame(v any) error
	DeviceID() string
}

// Fallback is the request/response send endpoint.
type Fallback interface {
	SendMessage(ctx context.Context, req backend.SendRequest) error
}

// Conversation is the log the dispatcher writes outcomes to.
type Conversation interface {
	AppendUserMessage(text string) string
	AppendAgentMessage(text string) string
	AppendFallbackNotice(text string) string
	MarkDelivered(id string) bool
	MarkSeen(id string) bool
	SetTyping(typing bool)
	ResetForNewVisitor(welcome string)
	Epoch() uint64
}

// Options configures a Dispatcher.
type Options struct {
	Live         Live
	Fallback     Fallback
	Conversation Conversation

	SellerID        string
	WidgetID        string
	FallbackMessage string
	WelcomeMessage  string
	RequiredFields  RequiredFields

	SeenDelay       time.Duration
	AgentReplyDelay time.Duration
	// AutoReply enables the canned acknowledgement after a fallback send.
	AutoReply bool
	Replies   []string

	Logger *slog.Logger
	Now    func() time.Time
}

// Dispatcher sends visitor messages. It is safe for concurrent use.
type Dispatcher struct {
	live     Live
	fallback Fallback
	conv     Conversation

	sellerID        string
	widgetID        string
	fallbackMessage string
	welcomeMessage  string
	required        RequiredFields
	seenDelay       time.Duration
	replyDelay      time.Duration
	autoReply       bool
	replies         []string
	logger          *slog.Logger
	now             func() time.Time

	mu      sync.Mutex
	visitor *domain.VisitorInfo
	timers  map[*time.Timer]struct{}
	closed  bool
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	if opts.SeenDelay <= 0 {
		opts.SeenDelay = DefaultSeenDelay
	}
	if opts.AgentReplyDelay <= 0 {
		opts.AgentReplyDelay = DefaultAgentReplyDelay
	}
	if len(opts.Replies) == 0 {
		opts.Replies = DefaultReplies
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		live:            opts.Live,
		fallback:        opts.Fallback,
		conv:            opts.Conversation,
		sellerID:        opts.SellerID,
		widgetID:        opts.WidgetID,
		fallbackMessage: opts.FallbackMessage,
		welcomeMessage:  opts.WelcomeMessage,
		required:        opts.RequiredFields,
		seenDelay:       opts.SeenDelay,
		replyDelay:      opts.AgentReplyDelay,
		autoReply:       opts.AutoReply,
		replies:         opts.Replies,
		logger:          opts.Logger,
		now:             opts.Now,
		timers:          make(map[*time.Timer]struct{}),
	}
}

// Send submits a visitor message. When the streaming channel is live the frame is handed
// to it first; a failed hand-off falls through to the fallback endpoint within the same
// call. A rejected send appends exactly one fallback notice and settles the user message
// at delivered.
func (d *Dispatcher) Send(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Rejected, ErrEmptyMessage
	}

	id := d.conv.AppendUserMessage(text)
	epoch := d.conv.Epoch()
	timestamp := d.timestamp()

	if d.live != nil && d.live.State() == connection.Live {
		frame := connection.SendMessageFrame{
			Action:    connection.ActionSendMessage,
			Type:      connection.TypeMessage,
			From:      d.live.DeviceID(),
			To:        d.sellerID,
			Message:   text,
			Timestamp: timestamp,
		}
		err := d.live.SendFrame(frame)
		if err == nil {
			d.markSeenLater(id)
			return Accepted, nil
		}
		d.logger.Warn("Streaming hand-off failed, using fallback", "error", err)
	}

	if err := d.sendFallback(ctx, text, timestamp); err != nil {
		d.conv.MarkDelivered(id)
		d.conv.AppendFallbackNotice(d.fallbackMessage)
		d.logger.Warn("Message rejected", "widget_id", d.widgetID, "error", err)
		return Rejected, fmt.Errorf("%w: %w", ErrSendRejected, err)
	}

	d.markSeenLater(id)
	if d.autoReply {
		d.conv.SetTyping(true)
		d.schedule(d.replyDelay, "agent reply", func() {
			if d.conv.Epoch() == epoch {
				d.conv.AppendAgentMessage(d.replies[rand.IntN(len(d.replies))])
			}
			d.conv.SetTyping(false)
		})
	}
	return Accepted, nil
}

// Close stops pending status updates and replies. Later sends still work but schedule
// nothing.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for t := range d.timers {
		t.Stop()
	}
	clear(d.timers)
}

func (d *Dispatcher) sendFallback(ctx context.Context, text, timestamp string) error {
	if d.fallback == nil {
		return errors.New("no fallback endpoint configured")
	}
	req := backend.SendRequest{
		SellerID:  d.sellerID,
		WidgetID:  d.widgetID,
		Message:   text,
		UserInfo:  d.VisitorInfo(),
		Timestamp: timestamp,
	}
	return d.fallback.SendMessage(ctx, req)
}

func (d *Dispatcher) markSeenLater(id string) {
	d.schedule(d.seenDelay, "message seen", func() { d.conv.MarkSeen(id) })
}

func (d *Dispatcher) schedule(delay time.Duration, where string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		d.mu.Lock()
		_, pending := d.timers[t]
		delete(d.timers, t)
		d.mu.Unlock()
		if pending {
			shared.Guard(d.logger, where, fn)
		}
	})
	d.timers[t] = struct{}{}
}

func (d *Dispatcher) timestamp() string {
	return d.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
