package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func newTestSQLite(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	assert.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('messages','dead_letters','tasks')`)
	assert.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["messages"])
	assert.True(t, found["dead_letters"])
	assert.True(t, found["tasks"])
}

func TestSQLiteMessageRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	now := time.Now().UTC().Truncate(time.Second)
	assert.NoError(t, j.RecordMessage(MessageRecord{
		MessageID:     "m-1",
		CorrelationID: "c-1",
		Kind:          "signal",
		Sender:        "coordinator",
		Recipient:     "risk",
		Attempt:       1,
		Outcome:       OutcomeRetry,
		Detail:        "recipient unavailable",
		Time:          now,
	}))
	assert.NoError(t, j.RecordMessage(MessageRecord{
		MessageID:     "m-1",
		CorrelationID: "c-1",
		Kind:          "signal",
		Sender:        "coordinator",
		Recipient:     "risk",
		Attempt:       2,
		Outcome:       OutcomeDelivered,
		Time:          now.Add(time.Second),
	}))
	assert.NoError(t, j.RecordMessage(MessageRecord{
		MessageID:     "m-2",
		CorrelationID: "c-other",
		Kind:          "signal",
		Sender:        "coordinator",
		Recipient:     "risk",
		Attempt:       1,
		Outcome:       OutcomeDelivered,
		Time:          now,
	}))

	got, err := j.MessagesByCorrelation("c-1")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, OutcomeRetry, got[0].Outcome)
	assert.Equal(t, OutcomeDelivered, got[1].Outcome)
	assert.Equal(t, 2, got[1].Attempt)
}

func TestSQLiteDeadLetters(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	now := time.Now().UTC().Truncate(time.Second)
	assert.NoError(t, j.RecordDeadLetter(DeadLetterRecord{
		MessageID:     "m-1",
		CorrelationID: "c-1",
		Kind:          "signal",
		Sender:        "coordinator",
		Recipient:     "nobody",
		Attempts:      4,
		Reason:        "recipient unavailable",
		Time:          now,
	}))

	got, err := j.ListDeadLetters()
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "nobody", got[0].Recipient)
	assert.Equal(t, 4, got[0].Attempts)
}

func TestSQLiteTaskRecords(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	now := time.Now().UTC().Truncate(time.Second)
	assert.NoError(t, j.RecordTask(TaskRecord{
		CorrelationID: "c-1",
		Instrument:    "AAPL",
		State:         "reported",
		FilledSize:    "10",
		AvgPrice:      "190.5",
		CreatedAt:     now.Add(-time.Minute),
		ClosedAt:      now,
	}))
	assert.NoError(t, j.RecordTask(TaskRecord{
		CorrelationID: "c-2",
		Instrument:    "AAPL",
		State:         "risk_rejected",
		Reason:        "LimitExceeded: per_instrument_exposure",
		CreatedAt:     now,
		ClosedAt:      now.Add(time.Second),
	}))

	got, err := j.GetTask("c-1")
	assert.NoError(t, err)
	assert.Equal(t, "reported", got.State)
	assert.Equal(t, "10", got.FilledSize)

	_, err = j.GetTask("ghost")
	assert.Error(t, err)

	byInstrument, err := j.ListTasksByInstrument("AAPL")
	assert.NoError(t, err)
	assert.Len(t, byInstrument, 2)
	assert.Equal(t, "c-1", byInstrument[0].CorrelationID)
	assert.Equal(t, "c-2", byInstrument[1].CorrelationID)
}
