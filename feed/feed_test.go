package feed

import (
	"testing"
	"time"

	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/pkg/id"
	"github.com/rustyeddy/tradeflow/task"
)

func TestSubscribeReceivesEvents(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(4)
	defer cancel()

	f.TaskChanged(task.Task{CorrelationID: "c-1", State: task.StateProposed})

	select {
	case e := <-events:
		if e.Task == nil || e.Task.CorrelationID != "c-1" {
			t.Fatalf("wrong event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	f := New()
	_, cancel := f.Subscribe(2)
	defer cancel()

	// Publish past the buffer; the third and later must drop.
	for i := 0; i < 5; i++ {
		f.TaskChanged(task.Task{CorrelationID: "c-1", State: task.StateRiskPending})
	}

	if got := f.Dropped(); got != 3 {
		t.Fatalf("dropped = %d, want 3", got)
	}
}

func TestDropsAreScopedPerSubscriber(t *testing.T) {
	f := New()
	full, cancelFull := f.Subscribe(1)
	defer cancelFull()
	roomy, cancelRoomy := f.Subscribe(16)
	defer cancelRoomy()

	for i := 0; i < 4; i++ {
		f.TaskChanged(task.Task{CorrelationID: "c-1", State: task.StateFilled})
	}

	// The roomy subscriber saw everything even though the full one lost 3.
	if got := f.Dropped(); got != 3 {
		t.Fatalf("dropped = %d, want 3", got)
	}
	if got := len(roomy); got != 4 {
		t.Fatalf("roomy subscriber buffered %d, want 4", got)
	}
	if got := len(full); got != 1 {
		t.Fatalf("full subscriber buffered %d, want 1", got)
	}
}

func TestCancelClosesChannelOnce(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(1)

	cancel()
	cancel() // second cancel is a no-op

	if _, ok := <-events; ok {
		t.Fatal("channel still open after cancel")
	}

	// Publishing after cancel must not panic or count drops.
	f.TaskChanged(task.Task{CorrelationID: "c-1"})
	if got := f.Dropped(); got != 0 {
		t.Fatalf("dropped = %d after all subscribers left, want 0", got)
	}
}

func TestMessageSeen(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(1)
	defer cancel()

	msg := message.New(message.KindSignal, "market", id.New(), message.Signal{}, "risk")
	f.MessageSeen(nil, msg)

	select {
	case e := <-events:
		if e.Message == nil || e.Message.ID != msg.ID {
			t.Fatalf("wrong event: %+v", e)
		}
		if e.Task != nil {
			t.Fatalf("unexpected task on message-only event: %+v", e.Task)
		}
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}
