// Package conversation holds the ordered message log of a chat session together with
// per-message delivery status and the agent typing indicator.
package conversation

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/livechat/internal/domain"
	"github.com/ashureev/livechat/internal/shared"
)

// WelcomeID is the id of the seeded welcome message.
const WelcomeID = "welcome"

// DefaultDeliveredDelay is how long a user message stays in sending before the local
// echo marks it delivered.
const DefaultDeliveredDelay = 100 * time.Millisecond

// Options configures a Conversation.
type Options struct {
	DeliveredDelay time.Duration
	Logger         *slog.Logger
	Now            func() time.Time
}

// Snapshot is a read-only copy of the conversation.
type Snapshot struct {
	Messages    []domain.Message `json:"messages"`
	AgentTyping bool             `json:"agent_typing"`
}

// Conversation is safe for concurrent use. Messages are append-only within an epoch;
// ResetForNewVisitor starts a new epoch.
type Conversation struct {
	deliveredDelay time.Duration
	logger         *slog.Logger
	now            func() time.Time

	mu       sync.Mutex
	messages []domain.Message
	index    map[string]int
	seq      uint64
	typing   bool
	epoch    uint64
	subs     map[int]chan struct{}
	nextSub  int
}

// New creates an empty conversation.
func New(opts Options) *Conversation {
	if opts.DeliveredDelay <= 0 {
		opts.DeliveredDelay = DefaultDeliveredDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Conversation{
		deliveredDelay: opts.DeliveredDelay,
		logger:         opts.Logger,
		now:            opts.Now,
		index:          make(map[string]int),
		subs:           make(map[int]chan struct{}),
	}
}

// AppendUserMessage appends text with status sending and returns its id. The status
// advances to delivered after the delivered delay.
func (c *Conversation) AppendUserMessage(text string) string {
	c.mu.Lock()
	id := c.appendLocked("", text, domain.AuthorUser, domain.StatusSending)
	c.mu.Unlock()
	c.notify()

	time.AfterFunc(c.deliveredDelay, func() {
		shared.Guard(c.logger, "conversation delivered", func() { c.MarkDelivered(id) })
	})
	return id
}

// AppendAgentMessage appends an agent-authored message and returns its id.
func (c *Conversation) AppendAgentMessage(text string) string {
	return c.AppendInboundMessage("", text)
}

// AppendInboundMessage appends an agent message using id when it is non-empty and not
// already in the log. Otherwise a local id is assigned.
func (c *Conversation) AppendInboundMessage(id, text string) string {
	c.mu.Lock()
	if _, taken := c.index[id]; taken {
		id = ""
	}
	id = c.appendLocked(id, text, domain.AuthorAgent, domain.StatusNone)
	c.mu.Unlock()
	c.notify()
	return id
}

// AppendFallbackNotice appends the explanation shown when a send was rejected.
func (c *Conversation) AppendFallbackNotice(text string) string {
	return c.AppendAgentMessage(text)
}

// SeedWelcome appends the welcome message when the log is empty.
func (c *Conversation) SeedWelcome(text string) bool {
	c.mu.Lock()
	if len(c.messages) > 0 {
		c.mu.Unlock()
		return false
	}
	c.appendLocked(WelcomeID, text, domain.AuthorAgent, domain.StatusNone)
	c.mu.Unlock()
	c.notify()
	return true
}

// ResetForNewVisitor clears the log, the typing indicator and pending status updates,
// then seeds a single welcome message.
func (c *Conversation) ResetForNewVisitor(welcome string) {
	c.mu.Lock()
	c.messages = nil
	c.index = make(map[string]int)
	c.typing = false
	c.epoch++
	c.appendLocked(WelcomeID, welcome, domain.AuthorAgent, domain.StatusNone)
	c.mu.Unlock()
	c.notify()
}

// MarkDelivered advances a user message to delivered. It never moves a status backward.
func (c *Conversation) MarkDelivered(id string) bool {
	return c.advance(id, domain.StatusDelivered)
}

// MarkSeen advances a user message to seen.
func (c *Conversation) MarkSeen(id string) bool {
	return c.advance(id, domain.StatusSeen)
}

// SetTyping sets the agent typing indicator. The last write wins.
func (c *Conversation) SetTyping(typing bool) {
	c.mu.Lock()
	changed := c.typing != typing
	c.typing = typing
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Epoch identifies the current visitor session. It changes on every reset so delayed
// work can detect that its conversation is gone.
func (c *Conversation) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Message returns the message with the given id.
func (c *Conversation) Message(id string) (domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return domain.Message{}, false
	}
	return c.messages[i], true
}

// Snapshot returns a copy of the log and the typing indicator.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]domain.Message, len(c.messages))
	copy(msgs, c.messages)
	return Snapshot{Messages: msgs, AgentTyping: c.typing}
}

// Subscribe returns a channel that receives a signal after every change. Signals are
// coalesced; readers take a Snapshot when woken. cancel releases the subscription.
func (c *Conversation) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	key := c.nextSub
	c.nextSub++
	c.subs[key] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, key)
			c.mu.Unlock()
		})
	}
}

func (c *Conversation) advance(id string, to domain.DeliveryStatus) bool {
	c.mu.Lock()
	i, ok := c.index[id]
	if !ok || !c.messages[i].IsUser() || c.messages[i].Status >= to {
		c.mu.Unlock()
		return false
	}
	c.messages[i].Status = to
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Conversation) appendLocked(id, text string, author domain.Author, status domain.DeliveryStatus) string {
	c.seq++
	for id == "" {
		id = "msg-" + strconv.FormatUint(c.seq, 10)
		if _, taken := c.index[id]; taken {
			id = ""
			c.seq++
		}
	}
	c.index[id] = len(c.messages)
	c.messages = append(c.messages, domain.Message{
		ID:        id,
		Seq:       c.seq,
		Text:      text,
		Author:    author,
		CreatedAt: c.now(),
		Status:    status,
	})
	return id
}

func (c *Conversation) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
