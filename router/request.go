package router

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/tradeflow/message"
)

// Request sends msg and waits for a correlated response of wantKind
// addressed back to the sender. It resolves with the response, with
// ErrTimeout after the configured request timeout, or with
// ErrCanceled when ctx ends first. The pending reply slot is always
// released before returning.
func (r *Router) Request(ctx context.Context, msg message.Message, wantKind message.Kind) (message.Message, error) {
	if !wantKind.IsValid() {
		return message.Message{}, fmt.Errorf("request: invalid response kind %q", wantKind)
	}

	key := pendingKey{
		recipient:     msg.Sender,
		correlationID: msg.CorrelationID,
		kind:          wantKind,
	}
	ch := make(chan message.Message, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return message.Message{}, ErrClosed
	}
	if _, exists := r.pending[key]; exists {
		r.mu.Unlock()
		return message.Message{}, fmt.Errorf("request %s: already awaiting %s", msg.CorrelationID, wantKind)
	}
	r.pending[key] = ch
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		if cur, ok := r.pending[key]; ok && cur == ch {
			delete(r.pending, key)
		}
		r.mu.Unlock()
	}

	if err := r.Send(msg); err != nil {
		release()
		return message.Message{}, err
	}

	timer := time.NewTimer(r.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			// Closed without a value: the correlation was canceled or
			// the router shut down.
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return message.Message{}, ErrClosed
			}
			return message.Message{}, fmt.Errorf("request %s awaiting %s: %w", msg.CorrelationID, wantKind, ErrCanceled)
		}
		return resp, nil
	case <-timer.C:
		release()
		return message.Message{}, fmt.Errorf("request %s awaiting %s: %w", msg.CorrelationID, wantKind, ErrTimeout)
	case <-ctx.Done():
		release()
		return message.Message{}, fmt.Errorf("request %s awaiting %s: %w", msg.CorrelationID, wantKind, ErrCanceled)
	}
}

// CancelPending drops every pending reply handle for a correlation
// ID. Outstanding Request calls for it resolve with ErrCanceled on
// their context or timeout path; messages arriving afterwards route
// through the normal subscription instead.
func (r *Router) CancelPending(correlationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, ch := range r.pending {
		if key.correlationID == correlationID {
			delete(r.pending, key)
			close(ch)
		}
	}
}
