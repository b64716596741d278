package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

type CSVJournal struct {
	mu       sync.Mutex
	messages *csv.Writer
	tasks    *csv.Writer
	mf, tf   *os.File
}

func NewCSV(messagesPath, tasksPath string) (*CSVJournal, error) {
	mf, err := os.Create(messagesPath)
	if err != nil {
		return nil, err
	}
	tf, err := os.Create(tasksPath)
	if err != nil {
		mf.Close()
		return nil, err
	}

	mw := csv.NewWriter(mf)
	tw := csv.NewWriter(tf)

	if err := mw.Write([]string{"message_id", "correlation_id", "kind", "sender", "recipient", "attempt", "outcome", "detail", "time"}); err != nil {
		return nil, err
	}
	if err := tw.Write([]string{"correlation_id", "instrument", "state", "reason", "filled_size", "avg_price", "created_at", "closed_at"}); err != nil {
		return nil, err
	}

	mw.Flush()
	if err := mw.Error(); err != nil {
		return nil, err
	}
	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{messages: mw, tasks: tw, mf: mf, tf: tf}, nil
}

func (j *CSVJournal) RecordMessage(m MessageRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	err := j.messages.Write([]string{
		m.MessageID,
		m.CorrelationID,
		m.Kind,
		m.Sender,
		m.Recipient,
		strconv.Itoa(m.Attempt),
		m.Outcome,
		m.Detail,
		m.Time.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	j.messages.Flush()
	return j.messages.Error()
}

// RecordDeadLetter writes dead letters into the messages file with a
// dead_lettered outcome; CSV keeps a single delivery log rather than
// the separate table SQLite has.
func (j *CSVJournal) RecordDeadLetter(d DeadLetterRecord) error {
	return j.RecordMessage(MessageRecord{
		MessageID:     d.MessageID,
		CorrelationID: d.CorrelationID,
		Kind:          d.Kind,
		Sender:        d.Sender,
		Recipient:     d.Recipient,
		Attempt:       d.Attempts,
		Outcome:       OutcomeDeadLettered,
		Detail:        d.Reason,
		Time:          d.Time,
	})
}

func (j *CSVJournal) RecordTask(t TaskRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	err := j.tasks.Write([]string{
		t.CorrelationID,
		t.Instrument,
		t.State,
		t.Reason,
		t.FilledSize,
		t.AvgPrice,
		t.CreatedAt.Format(time.RFC3339Nano),
		t.ClosedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	j.tasks.Flush()
	return j.tasks.Error()
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.messages.Flush()
	if err := j.messages.Error(); err != nil {
		return err
	}
	j.tasks.Flush()
	if err := j.tasks.Error(); err != nil {
		return err
	}

	if err := j.mf.Close(); err != nil {
		return err
	}
	return j.tf.Close()
}
