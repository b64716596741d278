// Package router moves typed messages between named agents. It
// guarantees that messages for the same correlation ID reach a given
// recipient in send order, retries transient delivery failures with
// exponential backoff, and dead-letters what it cannot deliver.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/tradeflow/journal"
	"github.com/rustyeddy/tradeflow/message"
)

var (
	ErrClosed   = errors.New("router closed")
	ErrTimeout  = errors.New("request timed out")
	ErrCanceled = errors.New("request canceled")
)

// Handler consumes one message addressed to a subscriber. A non-nil
// error is logged as a handler failure; it does not trigger redelivery
// because the message did reach its recipient.
type Handler func(ctx context.Context, msg message.Message) error

// Config sets delivery policy.
type Config struct {
	// MaxRetries is how many times a delivery is retried after the
	// first failed attempt before dead-lettering.
	MaxRetries int

	// BackoffBase is the first retry delay; each further retry doubles it.
	BackoffBase time.Duration

	// RequestTimeout bounds Request when the caller's context carries
	// no earlier deadline.
	RequestTimeout time.Duration
}

// DefaultConfig returns the delivery policy used when a field is zero:
// 3 retries, 100ms backoff base, 5s request timeout.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BackoffBase:    100 * time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = d.BackoffBase
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

// DeliveryError is raised to a sender when one of its messages
// exhausts its retries.
type DeliveryError struct {
	Message   message.Message
	Recipient string
	Attempts  int
	Err       error
}

// DeadLetter is a message set aside after retry exhaustion.
type DeadLetter struct {
	Message   message.Message
	Recipient string
	Attempts  int
	Reason    string
	Time      time.Time
}

type subscription struct {
	name    string
	kinds   message.KindSet
	handler Handler
}

// pendingKey identifies one awaited correlated response.
type pendingKey struct {
	recipient     string
	correlationID string
	kind          message.Kind
}

// Router is the in-process message bus. One delivery goroutine per
// recipient keeps per-correlation send order intact.
type Router struct {
	cfg    Config
	logger *slog.Logger
	jnl    journal.Journal

	mu       sync.Mutex
	subs     map[string]*subscription
	outboxes map[string]*outbox
	pending  map[pendingKey]chan message.Message
	errFns   map[string]func(DeliveryError)
	dead     []DeadLetter
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a router. A nil logger falls back to slog.Default();
// a nil journal discards records.
func New(cfg Config, logger *slog.Logger, jnl journal.Journal) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if jnl == nil {
		jnl = journal.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		cfg:      cfg.withDefaults(),
		logger:   logger,
		jnl:      jnl,
		subs:     make(map[string]*subscription),
		outboxes: make(map[string]*outbox),
		pending:  make(map[pendingKey]chan message.Message),
		errFns:   make(map[string]func(DeliveryError)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe registers a consumer for the kinds its identity declares.
// Re-subscribing a name replaces the previous handler and filter.
func (r *Router) Subscribe(identity message.AgentIdentity, handler Handler) error {
	if identity.Name == "" {
		return fmt.Errorf("subscribe: agent name is empty")
	}
	if handler == nil {
		return fmt.Errorf("subscribe %q: nil handler", identity.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.subs[identity.Name] = &subscription{
		name:    identity.Name,
		kinds:   identity.Consumes,
		handler: handler,
	}
	return nil
}

// OnDeliveryError registers a callback invoked when a message from
// sender is dead-lettered. Callbacks run on delivery goroutines and
// must not block.
func (r *Router) OnDeliveryError(sender string, fn func(DeliveryError)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errFns[sender] = fn
}

// Send enqueues a message for each recipient and returns immediately.
// A recipient awaiting a correlated response of this kind receives it
// through its reply handle instead of its subscription.
func (r *Router) Send(msg message.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	var boxes []*outbox
	for _, recipient := range msg.Recipients {
		key := pendingKey{recipient: recipient, correlationID: msg.CorrelationID, kind: msg.Kind}
		if ch, ok := r.pending[key]; ok {
			delete(r.pending, key)
			ch <- msg
			continue
		}
		boxes = append(boxes, r.outboxLocked(recipient))
	}
	r.mu.Unlock()

	for _, box := range boxes {
		box.push(msg)
	}
	return nil
}

// DeadLetters returns a copy of every dead-lettered message so far.
func (r *Router) DeadLetters() []DeadLetter {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeadLetter, len(r.dead))
	copy(out, r.dead)
	return out
}

// Close stops accepting messages and waits for in-flight deliveries.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for key, ch := range r.pending {
		delete(r.pending, key)
		close(ch)
	}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}
