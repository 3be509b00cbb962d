package connection

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

const sendBuffer = 32

var (
	errHandleClosed = errors.New("streaming handle closed")
	errSendBackedUp = errors.New("streaming send buffer full")
	errNotOpen      = errors.New("streaming handle not open")
)

// WebSocketTransport opens streaming channels with github.com/coder/websocket.
type WebSocketTransport struct {
	HTTPClient *http.Client
	Header     http.Header
	Logger     *slog.Logger
}

// Open starts dialing url in the background and returns the handle immediately.
// The dial and the connection outlive ctx; only its values are kept.
func (t *WebSocketTransport) Open(ctx context.Context, url string, ev Events) (Handle, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &wsHandle{
		ctx:    connCtx,
		cancel: cancel,
		out:    make(chan []byte, sendBuffer),
		logger: logger,
	}
	go h.run(url, &websocket.DialOptions{
		HTTPClient: t.HTTPClient,
		HTTPHeader: t.Header,
	}, ev)
	return h, nil
}

type wsHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
	out    chan []byte
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (h *wsHandle) run(url string, opts *websocket.DialOptions, ev Events) {
	conn, resp, err := websocket.Dial(h.ctx, url, opts)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if h.ctx.Err() == nil {
			fire(ev.OnError, err)
		}
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "closed while connecting")
		return
	}
	h.conn = conn
	h.mu.Unlock()

	if ev.OnOpen != nil {
		ev.OnOpen()
	}
	go h.writeLoop(conn, ev)
	h.readLoop(conn, ev)
}

func (h *wsHandle) readLoop(conn *websocket.Conn, ev Events) {
	for {
		_, data, err := conn.Read(h.ctx)
		if err != nil {
			if h.ctx.Err() == nil {
				fire(ev.OnClose, err)
			}
			return
		}
		if ev.OnMessage != nil {
			ev.OnMessage(data)
		}
	}
}

func (h *wsHandle) writeLoop(conn *websocket.Conn, ev Events) {
	for {
		select {
		case <-h.ctx.Done():
			return
		case data := <-h.out:
			if err := conn.Write(h.ctx, websocket.MessageText, data); err != nil {
				if h.ctx.Err() == nil {
					h.logger.Debug("WebSocket write error", "error", err)
					fire(ev.OnError, err)
				}
				return
			}
		}
	}
}

// Send queues data for the writer. It fails when the handle is closed, not yet open, or
// backed up.
func (h *wsHandle) Send(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}
	if h.conn == nil {
		return errNotOpen
	}
	select {
	case h.out <- data:
		return nil
	default:
		return errSendBackedUp
	}
}

func (h *wsHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conn := h.conn
	h.mu.Unlock()

	h.cancel()
	if conn == nil {
		return nil
	}
	// Read was cancelled with the context, so the close handshake cannot complete.
	return conn.CloseNow()
}

func fire(fn func(error), err error) {
	if fn != nil {
		fn(err)
	}
}
