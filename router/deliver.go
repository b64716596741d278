package router

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/tradeflow/journal"
	"github.com/rustyeddy/tradeflow/message"
)

var errUnavailable = errors.New("recipient unavailable")

// outbox is the ordered delivery queue for one recipient. A single
// goroutine drains it, so retries for one message hold back the next
// and per-correlation order is preserved.
type outbox struct {
	name string
	mu   sync.Mutex
	q    []message.Message
	wake chan struct{}
}

func (b *outbox) push(msg message.Message) {
	b.mu.Lock()
	b.q = append(b.q, msg)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *outbox) pop() (message.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.q) == 0 {
		return message.Message{}, false
	}
	msg := b.q[0]
	b.q = b.q[1:]
	return msg, true
}

// outboxLocked returns the recipient's outbox, starting its delivery
// goroutine on first use. Callers hold r.mu.
func (r *Router) outboxLocked(recipient string) *outbox {
	box, ok := r.outboxes[recipient]
	if !ok {
		box = &outbox{name: recipient, wake: make(chan struct{}, 1)}
		r.outboxes[recipient] = box
		r.wg.Add(1)
		go r.drain(box)
	}
	return box
}

func (r *Router) drain(box *outbox) {
	defer r.wg.Done()
	for {
		msg, ok := box.pop()
		if !ok {
			select {
			case <-r.ctx.Done():
				return
			case <-box.wake:
				continue
			}
		}
		r.deliver(box.name, msg)
	}
}

func (r *Router) subscriptionFor(recipient string, kind message.Kind) (*subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[recipient]
	if !ok || !sub.kinds.Has(kind) {
		return nil, errUnavailable
	}
	return sub, nil
}

// deliver attempts a message until it lands, retries are exhausted,
// or the router shuts down.
func (r *Router) deliver(recipient string, msg message.Message) {
	attempts := r.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		sub, err := r.subscriptionFor(recipient, msg.Kind)
		if err == nil {
			handlerErr := sub.handler(r.ctx, msg)
			r.recordAttempt(msg, recipient, attempt, handlerErr)
			return
		}

		last := attempt == attempts
		outcome := journal.OutcomeRetry
		if last {
			outcome = journal.OutcomeDeadLettered
		}
		r.logAttempt(msg, recipient, attempt, outcome, err.Error())
		if last {
			break
		}

		backoff := r.cfg.BackoffBase << (attempt - 1)
		select {
		case <-r.ctx.Done():
			return
		case <-time.After(backoff):
		}
	}

	r.deadLetter(recipient, msg, attempts)
}

func (r *Router) recordAttempt(msg message.Message, recipient string, attempt int, handlerErr error) {
	if handlerErr != nil {
		r.logAttempt(msg, recipient, attempt, journal.OutcomeHandlerError, handlerErr.Error())
		return
	}
	r.logAttempt(msg, recipient, attempt, journal.OutcomeDelivered, "")
}

func (r *Router) logAttempt(msg message.Message, recipient string, attempt int, outcome, detail string) {
	r.logger.Info("delivery attempt",
		slog.String("message_id", msg.ID),
		slog.String("kind", msg.Kind.String()),
		slog.String("recipient", recipient),
		slog.Int("attempt", attempt),
		slog.String("outcome", outcome),
		slog.String("detail", detail))

	if err := r.jnl.RecordMessage(journal.MessageRecord{
		MessageID:     msg.ID,
		CorrelationID: msg.CorrelationID,
		Kind:          msg.Kind.String(),
		Sender:        msg.Sender,
		Recipient:     recipient,
		Attempt:       attempt,
		Outcome:       outcome,
		Detail:        detail,
		Time:          time.Now().UTC(),
	}); err != nil {
		r.logger.Error("journal write failed", slog.String("error", err.Error()))
	}
}

func (r *Router) deadLetter(recipient string, msg message.Message, attempts int) {
	now := time.Now().UTC()
	dl := DeadLetter{
		Message:   msg,
		Recipient: recipient,
		Attempts:  attempts,
		Reason:    errUnavailable.Error(),
		Time:      now,
	}

	r.mu.Lock()
	r.dead = append(r.dead, dl)
	errFn := r.errFns[msg.Sender]
	r.mu.Unlock()

	r.logger.Error("message dead-lettered",
		slog.String("message_id", msg.ID),
		slog.String("kind", msg.Kind.String()),
		slog.String("recipient", recipient),
		slog.Int("attempts", attempts))

	if err := r.jnl.RecordDeadLetter(journal.DeadLetterRecord{
		MessageID:     msg.ID,
		CorrelationID: msg.CorrelationID,
		Kind:          msg.Kind.String(),
		Sender:        msg.Sender,
		Recipient:     recipient,
		Attempts:      attempts,
		Reason:        dl.Reason,
		Time:          now,
	}); err != nil {
		r.logger.Error("journal write failed", slog.String("error", err.Error()))
	}

	if errFn != nil {
		errFn(DeliveryError{
			Message:   msg,
			Recipient: recipient,
			Attempts:  attempts,
			Err:       errUnavailable,
		})
	}
}
