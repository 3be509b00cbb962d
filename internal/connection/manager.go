// Package connection manages the optional streaming channel between the widget and the
// chat backend. The channel is opened opportunistically and never required: while it is
// not live every send goes through the request/response fallback.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/livechat/internal/shared"
)

// DefaultTimeout bounds how long an open attempt may stay in Connecting.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTransportOpen is recorded when the streaming channel cannot be opened.
	ErrTransportOpen = errors.New("streaming transport open failed")
	// ErrTransportTimeout is recorded when an open attempt times out.
	ErrTransportTimeout = errors.New("streaming transport open timed out")
	// ErrNotLive is returned by SendFrame when no channel is live.
	ErrNotLive = errors.New("streaming transport not live")
	// ErrMalformedFrame marks an inbound frame that could not be decoded.
	ErrMalformedFrame = errors.New("malformed inbound frame")
)

// Events receives transport-level signals. Any callback may be invoked from any goroutine.
type Events struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnClose   func(err error)
	OnError   func(err error)
}

// Handle is one open or opening streaming channel.
type Handle interface {
	// Send hands a frame to the transport without waiting for the write.
	Send(data []byte) error
	// Close tears the channel down. It is safe to call more than once.
	Close() error
}

// Transport opens streaming channels. Open returns as soon as the attempt has started;
// the outcome is reported through ev.
type Transport interface {
	Open(ctx context.Context, url string, ev Events) (Handle, error)
}

// Options configures a Manager.
type Options struct {
	Transport Transport
	// Endpoint is the configured streaming base. Empty means fallback-only.
	Endpoint string
	Timeout  time.Duration
	Logger   *slog.Logger

	// OnAgentMessage receives chat frames while live. id is empty when the frame has none.
	OnAgentMessage func(id, text string)
	// OnStateChange is called with the manager lock held and must not call back into it.
	OnStateChange func(State)
}

// Manager owns the streaming channel state. At most one handle and one open-attempt timer
// exist at any time. Every attempt gets a generation number; events from handles of an
// older generation are ignored.
type Manager struct {
	transport      Transport
	endpoint       string
	timeout        time.Duration
	logger         *slog.Logger
	onAgentMessage func(id, text string)
	onStateChange  func(State)

	mu        sync.Mutex
	state     State
	handle    Handle
	timer     *time.Timer
	gen       uint64
	deviceID  string
	contactID string
	lastErr   error
}

// NewManager creates a Manager in the Disconnected state.
func NewManager(opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		transport:      opts.Transport,
		endpoint:       opts.Endpoint,
		timeout:        opts.Timeout,
		logger:         opts.Logger,
		onAgentMessage: opts.OnAgentMessage,
		onStateChange:  opts.OnStateChange,
	}
}

// Open starts an upgrade attempt for deviceID. It is a no-op returning the current state
// when an attempt is in flight or the channel is live. Failures are recorded in LastError
// and leave the manager Disconnected.
func (m *Manager) Open(ctx context.Context, deviceID string) State {
	m.mu.Lock()
	if m.state != Disconnected {
		state := m.state
		m.mu.Unlock()
		return state
	}
	if m.endpoint == "" || m.transport == nil {
		m.mu.Unlock()
		return Disconnected
	}

	streamURL, err := StreamURL(m.endpoint, deviceID)
	if err != nil {
		m.lastErr = err
		m.mu.Unlock()
		m.logger.Warn("Streaming endpoint unusable, staying on fallback", "error", err)
		return Disconnected
	}

	m.gen++
	gen := m.gen
	m.deviceID = deviceID
	m.lastErr = nil
	m.setStateLocked(Connecting)
	m.timer = time.AfterFunc(m.timeout, func() {
		shared.Guard(m.logger, "connection timeout", func() { m.onTimeout(gen) })
	})
	m.mu.Unlock()

	m.logger.Info("Opening streaming channel", "device_id", deviceID)
	h, err := m.transport.Open(ctx, streamURL, m.events(gen))

	m.mu.Lock()
	if err != nil {
		if m.gen == gen {
			m.stopTimerLocked()
			m.gen++
			m.lastErr = fmt.Errorf("%w: %w", ErrTransportOpen, err)
			m.setStateLocked(Disconnected)
		}
		state := m.state
		m.mu.Unlock()
		m.logger.Warn("Streaming channel open failed", "error", err)
		return state
	}
	if m.gen != gen {
		// Closed, timed out or failed while Open was running.
		state := m.state
		m.mu.Unlock()
		closeHandle(m.logger, h)
		return state
	}
	m.handle = h
	state := m.state
	m.mu.Unlock()
	return state
}

// Close tears down the channel from any state. It cancels a pending open timeout and is
// idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopTimerLocked()
	h := m.handle
	m.handle = nil
	m.gen++
	wasOpen := m.state != Disconnected
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	if h != nil {
		closeHandle(m.logger, h)
	}
	if wasOpen {
		m.logger.Info("Streaming channel closed")
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns why the most recent attempt ended, or nil.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// ContactID returns the correlation id received in the InitChat frame, if any.
func (m *Manager) ContactID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contactID
}

// DeviceID returns the identity the current or last attempt was opened with.
func (m *Manager) DeviceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceID
}

// SendFrame encodes v as JSON and hands it to the live channel.
func (m *Manager) SendFrame(v any) error {
	m.mu.Lock()
	if m.state != Live || m.handle == nil {
		m.mu.Unlock()
		return ErrNotLive
	}
	h := m.handle
	m.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := h.Send(data); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	m.logger.Debug("Frame sent", "payload", string(data))
	return nil
}

func (m *Manager) events(gen uint64) Events {
	return Events{
		OnOpen: func() {
			shared.Guard(m.logger, "connection open", func() { m.onOpen(gen) })
		},
		OnMessage: func(data []byte) {
			shared.Guard(m.logger, "connection message", func() { m.onMessage(gen, data) })
		},
		OnClose: func(err error) {
			shared.Guard(m.logger, "connection close", func() { m.onDown(gen, err) })
		},
		OnError: func(err error) {
			shared.Guard(m.logger, "connection error", func() { m.onDown(gen, err) })
		},
	}
}

func (m *Manager) onOpen(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state != Connecting {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.setStateLocked(Live)
	m.mu.Unlock()
	m.logger.Info("Streaming channel live", "device_id", m.DeviceID())
}

func (m *Manager) onDown(gen uint64, cause error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	h := m.handle
	m.handle = nil
	m.gen++
	if m.state == Connecting {
		if cause == nil {
			cause = errors.New("closed before open")
		}
		m.lastErr = fmt.Errorf("%w: %w", ErrTransportOpen, cause)
	}
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	if h != nil {
		closeHandle(m.logger, h)
	}
	m.logger.Warn("Streaming channel down, using fallback", "error", cause)
}

func (m *Manager) onTimeout(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state != Connecting {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	h := m.handle
	m.handle = nil
	m.gen++
	m.lastErr = ErrTransportTimeout
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	if h != nil {
		closeHandle(m.logger, h)
	}
	m.logger.Warn("Streaming channel open timed out", "timeout", m.timeout)
}

func (m *Manager) onMessage(gen uint64, data []byte) {
	m.mu.Lock()
	if m.gen != gen || m.state != Live {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	frame, err := ParseInbound(data)
	if err != nil {
		m.logger.Warn("Dropping inbound frame", "error", err)
		return
	}
	m.logger.Debug("Frame received", "payload", string(data))

	if frame.Action == ActionInitChat {
		m.mu.Lock()
		if m.gen == gen {
			m.contactID = frame.ContactID
		}
		m.mu.Unlock()
		m.logger.Info("Chat session initiated", "contact_id", frame.ContactID)
		return
	}
	if frame.IsChatMessage() && m.onAgentMessage != nil {
		m.onAgentMessage(frame.MessageID(), frame.Body())
	}
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.onStateChange != nil {
		m.onStateChange(s)
	}
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func closeHandle(logger *slog.Logger, h Handle) {
	if err := h.Close(); err != nil {
		logger.Debug("Failed to close streaming handle", "error", err)
	}
}
