package widget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/livechat/internal/connection"
	"github.com/ashureev/livechat/internal/conversation"
	"github.com/ashureev/livechat/internal/dispatch"
	"github.com/ashureev/livechat/internal/domain"
	"github.com/ashureev/livechat/internal/identity"
	"github.com/ashureev/livechat/internal/shared"
	"github.com/ashureev/livechat/internal/widgetconfig"
)

// LiveLabel is the status label shown while the streaming channel is open.
const LiveLabel = "Live"

// Widget is one mounted chat instance. It is safe for concurrent use.
type Widget struct {
	widgetID string
	sellerID string
	cfg      widgetconfig.Config
	identity *identity.Provider
	conv     *conversation.Conversation
	conn     *connection.Manager
	disp     *dispatch.Dispatcher
	logger   *slog.Logger
	now      func() time.Time
	minute   time.Duration

	mu            sync.Mutex
	open          bool
	destroyed     bool
	inactivity    *time.Timer
	inactivityGen uint64
}

// OpenChat opens the chat window and starts the streaming upgrade. The returned state is
// the connection state right after the attempt started.
func (w *Widget) OpenChat(ctx context.Context) (connection.State, error) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return connection.Disconnected, ErrNotMounted
	}
	w.open = true
	w.mu.Unlock()

	w.touch()

	deviceID, err := w.identity.GetDeviceID(ctx)
	if err != nil {
		w.logger.Warn("No device identity, staying on fallback", "error", err)
		return connection.Disconnected, nil
	}
	return w.conn.Open(ctx, deviceID), nil
}

// CloseChat closes the chat window and the streaming channel.
func (w *Widget) CloseChat() {
	w.mu.Lock()
	w.open = false
	w.stopInactivityLocked()
	w.mu.Unlock()
	w.conn.Close()
}

// Send submits a visitor message.
func (w *Widget) Send(ctx context.Context, text string) (dispatch.Outcome, error) {
	if w.isDestroyed() {
		return dispatch.Rejected, ErrNotMounted
	}
	w.touch()
	return w.disp.Send(ctx, text)
}

// SubmitVisitorInfo stores the visitor details and starts a fresh conversation.
func (w *Widget) SubmitVisitorInfo(ctx context.Context, info domain.VisitorInfo) error {
	if w.isDestroyed() {
		return ErrNotMounted
	}
	w.touch()
	return w.disp.SubmitVisitorInfo(ctx, info)
}

// NeedsVisitorInfo reports whether the info form must be shown before chatting.
func (w *Widget) NeedsVisitorInfo() bool {
	return w.cfg.RequireUserInfo && w.disp.VisitorInfo() == nil
}

// Snapshot returns the current conversation.
func (w *Widget) Snapshot() conversation.Snapshot {
	return w.conv.Snapshot()
}

// Subscribe signals conversation changes. See conversation.Conversation.Subscribe.
func (w *Widget) Subscribe() (<-chan struct{}, func()) {
	return w.conv.Subscribe()
}

// Config returns the resolved widget configuration.
func (w *Widget) Config() widgetconfig.Config {
	return w.cfg
}

// SellerID returns the seller messages are addressed to.
func (w *Widget) SellerID() string {
	return w.sellerID
}

// ConnectionState returns the streaming channel state.
func (w *Widget) ConnectionState() connection.State {
	return w.conn.State()
}

// StatusLabel returns LiveLabel while the streaming channel is live and "" otherwise.
func (w *Widget) StatusLabel() string {
	if w.conn.State() == connection.Live {
		return LiveLabel
	}
	return ""
}

// IsOpen reports whether the chat window is open. An inactivity disconnect closes it.
func (w *Widget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// ContactID returns the backend contact id received on the streaming channel.
func (w *Widget) ContactID() string {
	return w.conn.ContactID()
}

// OutsideBusinessHours reports whether the configured schedule is closed right now.
// Sending is never blocked; the presentation shows the outside-hours message.
func (w *Widget) OutsideBusinessHours() bool {
	return !w.cfg.BusinessHours.IsOpen(w.now())
}

func (w *Widget) onAgentMessage(id, text string) {
	w.conv.SetTyping(false)
	w.conv.AppendInboundMessage(id, text)
}

// touch re-arms the inactivity disconnect when it is enabled. Visitor activity reopens a
// chat that was closed for inactivity.
func (w *Widget) touch() {
	ds := w.cfg.DisconnectSettings
	if !ds.Enabled || ds.InactivityTimeoutMinutes <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return
	}
	w.open = true
	w.stopInactivityLocked()
	gen := w.inactivityGen
	w.inactivity = time.AfterFunc(time.Duration(ds.InactivityTimeoutMinutes)*w.minute, func() {
		shared.Guard(w.logger, "inactivity disconnect", func() { w.onInactive(gen) })
	})
}

// onInactive ignores timers that were stopped or replaced after they fired.
func (w *Widget) onInactive(gen uint64) {
	w.mu.Lock()
	if gen != w.inactivityGen || w.destroyed {
		w.mu.Unlock()
		return
	}
	w.inactivityGen++
	w.inactivity = nil
	w.open = false
	w.mu.Unlock()

	w.conn.Close()
	w.conv.AppendAgentMessage(w.cfg.DisconnectSettings.DisconnectMessage)
	w.logger.Info("Chat disconnected after inactivity")
}

func (w *Widget) stopInactivityLocked() {
	w.inactivityGen++
	if w.inactivity != nil {
		w.inactivity.Stop()
		w.inactivity = nil
	}
}

func (w *Widget) isDestroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

func (w *Widget) destroy() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	w.open = false
	w.stopInactivityLocked()
	w.mu.Unlock()

	w.conn.Close()
	w.disp.Close()
	w.logger.Info("Widget destroyed")
}
