// Package widget is the host integration surface: Init mounts one chat widget instance
// and Destroy releases it.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/livechat/internal/backend"
	"github.com/ashureev/livechat/internal/connection"
	"github.com/ashureev/livechat/internal/conversation"
	"github.com/ashureev/livechat/internal/dispatch"
	"github.com/ashureev/livechat/internal/identity"
	"github.com/ashureev/livechat/internal/store"
	"github.com/ashureev/livechat/internal/widgetconfig"
)

var (
	// ErrMissingWidgetID is returned by Init without a widget id.
	ErrMissingWidgetID = errors.New("widget id is required")
	// ErrNotMounted is returned by operations on a destroyed widget.
	ErrNotMounted = errors.New("widget is not mounted")
)

// Options are the per-page values the host passes to Init.
type Options struct {
	WidgetID string `json:"widgetId"`
	SellerID string `json:"sellerId,omitempty"`
	APIURL   string `json:"apiUrl,omitempty"`
	// SocketURL is the streaming base endpoint. Empty means fallback-only.
	SocketURL string `json:"socketUrl,omitempty"`
}

// Settings are the process-wide collaborators and timings shared by every instance.
type Settings struct {
	Store       store.KV
	Environment identity.Environment
	Transport   connection.Transport
	HTTPClient  *backend.Client // overrides the client built from Options.APIURL

	HTTPTimeout     time.Duration
	ConnectTimeout  time.Duration
	DeliveredDelay  time.Duration
	SeenDelay       time.Duration
	AgentReplyDelay time.Duration
	AutoReply       bool

	Logger *slog.Logger
	Now    func() time.Time
}

// Embed owns at most one mounted Widget.
type Embed struct {
	settings Settings
	identity *identity.Provider

	mu      sync.Mutex
	current *Widget
}

// NewEmbed creates an Embed. The device identity provider is shared across instances so
// a remount keeps the same identity.
func NewEmbed(settings Settings) *Embed {
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.Store == nil {
		settings.Store = store.NewMemory()
	}
	if settings.Transport == nil {
		settings.Transport = &connection.WebSocketTransport{Logger: settings.Logger}
	}
	return &Embed{
		settings: settings,
		identity: identity.NewProvider(settings.Store, settings.Environment, settings.Logger),
	}
}

// Init tears down any mounted instance and mounts a new one. The remote configuration is
// fetched once; failures fall back to the defaults.
func (e *Embed) Init(ctx context.Context, opts Options) (*Widget, error) {
	opts.WidgetID = strings.TrimSpace(opts.WidgetID)
	if opts.WidgetID == "" {
		return nil, ErrMissingWidgetID
	}
	e.Destroy()

	s := e.settings
	logger := s.Logger.With("widget_id", opts.WidgetID)

	client := s.HTTPClient
	if client == nil && opts.APIURL != "" {
		client = backend.NewClient(opts.APIURL, s.HTTPTimeout, logger)
	}
	var source widgetconfig.Source
	if client != nil {
		source = client
	}
	cfg := widgetconfig.NewFetcher(source, logger).Fetch(ctx, opts.WidgetID)

	sellerID := opts.SellerID
	if sellerID == "" {
		sellerID = cfg.SellerID
	}

	w := &Widget{
		widgetID: opts.WidgetID,
		sellerID: sellerID,
		cfg:      cfg,
		identity: e.identity,
		logger:   logger,
		now:      s.Now,
		minute:   time.Minute,
	}
	w.conv = conversation.New(conversation.Options{
		DeliveredDelay: s.DeliveredDelay,
		Logger:         logger,
		Now:            s.Now,
	})
	w.conn = connection.NewManager(connection.Options{
		Transport:      s.Transport,
		Endpoint:       opts.SocketURL,
		Timeout:        s.ConnectTimeout,
		Logger:         logger,
		OnAgentMessage: w.onAgentMessage,
	})

	var fallback dispatch.Fallback
	if client != nil {
		fallback = client
	}
	w.disp = dispatch.New(dispatch.Options{
		Live:            w.conn,
		Fallback:        fallback,
		Conversation:    w.conv,
		SellerID:        sellerID,
		WidgetID:        opts.WidgetID,
		FallbackMessage: cfg.FallbackMessage,
		WelcomeMessage:  cfg.WelcomeMessage,
		RequiredFields: dispatch.RequiredFields{
			Name:  cfg.RequiredFields.Name,
			Email: cfg.RequiredFields.Email,
			Phone: cfg.RequiredFields.Phone,
		},
		SeenDelay:       s.SeenDelay,
		AgentReplyDelay: s.AgentReplyDelay,
		AutoReply:       s.AutoReply,
		Logger:          logger,
		Now:             s.Now,
	})

	if !cfg.RequireUserInfo {
		w.conv.SeedWelcome(cfg.WelcomeMessage)
	}

	e.mu.Lock()
	prev := e.current
	e.current = w
	e.mu.Unlock()
	// A concurrent Init may have mounted in between.
	if prev != nil {
		prev.destroy()
	}

	logger.Info("Widget mounted", "seller_id", sellerID, "streaming", opts.SocketURL != "")
	return w, nil
}

// Destroy releases the mounted instance. It is safe to call when nothing is mounted.
func (e *Embed) Destroy() {
	e.mu.Lock()
	w := e.current
	e.current = nil
	e.mu.Unlock()

	if w != nil {
		w.destroy()
	}
}

// Current returns the mounted instance, or nil.
func (e *Embed) Current() *Widget {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// DeviceID returns the stable device identity.
func (e *Embed) DeviceID(ctx context.Context) (string, error) {
	id, err := e.identity.GetDeviceID(ctx)
	if err != nil {
		return "", fmt.Errorf("device identity: %w", err)
	}
	return id, nil
}
