package journal

import (
	"database/sql"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordMessage(m MessageRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(`
		INSERT INTO messages
		(message_id, correlation_id, kind, sender, recipient, attempt, outcome, detail, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MessageID, m.CorrelationID, m.Kind, m.Sender,
		m.Recipient, m.Attempt, m.Outcome, m.Detail, m.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordDeadLetter(d DeadLetterRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO dead_letters
		(message_id, correlation_id, kind, sender, recipient, attempts, reason, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.MessageID, d.CorrelationID, d.Kind, d.Sender,
		d.Recipient, d.Attempts, d.Reason, d.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordTask(t TaskRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO tasks
		(correlation_id, instrument, state, reason, filled_size, avg_price, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.CorrelationID, t.Instrument, t.State, t.Reason,
		t.FilledSize, t.AvgPrice, t.CreatedAt, t.ClosedAt,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
