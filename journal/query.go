package journal

import (
	"database/sql"
	"fmt"
)

// MessagesByCorrelation returns every delivery attempt recorded for a
// correlation ID, oldest first.
func (j *SQLiteJournal) MessagesByCorrelation(correlationID string) ([]MessageRecord, error) {
	rows, err := j.db.Query(`
		SELECT message_id, correlation_id, kind, sender, recipient, attempt, outcome, detail, time
		FROM messages
		WHERE correlation_id = ?
		ORDER BY time ASC, attempt ASC`, correlationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(
			&rec.MessageID,
			&rec.CorrelationID,
			&rec.Kind,
			&rec.Sender,
			&rec.Recipient,
			&rec.Attempt,
			&rec.Outcome,
			&rec.Detail,
			&rec.Time,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListDeadLetters returns all dead-lettered messages, oldest first.
func (j *SQLiteJournal) ListDeadLetters() ([]DeadLetterRecord, error) {
	rows, err := j.db.Query(`
		SELECT message_id, correlation_id, kind, sender, recipient, attempts, reason, time
		FROM dead_letters
		ORDER BY time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeadLetterRecord
	for rows.Next() {
		var rec DeadLetterRecord
		if err := rows.Scan(
			&rec.MessageID,
			&rec.CorrelationID,
			&rec.Kind,
			&rec.Sender,
			&rec.Recipient,
			&rec.Attempts,
			&rec.Reason,
			&rec.Time,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetTask returns the recorded terminal outcome for a correlation ID.
func (j *SQLiteJournal) GetTask(correlationID string) (TaskRecord, error) {
	var rec TaskRecord

	row := j.db.QueryRow(`
		SELECT correlation_id, instrument, state, reason, filled_size, avg_price, created_at, closed_at
		FROM tasks
		WHERE correlation_id = ?`, correlationID)

	err := row.Scan(
		&rec.CorrelationID,
		&rec.Instrument,
		&rec.State,
		&rec.Reason,
		&rec.FilledSize,
		&rec.AvgPrice,
		&rec.CreatedAt,
		&rec.ClosedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return TaskRecord{}, fmt.Errorf("task %q not found", correlationID)
		}
		return TaskRecord{}, err
	}
	return rec, nil
}

// ListTasksByInstrument returns terminal task records for an
// instrument, oldest first.
func (j *SQLiteJournal) ListTasksByInstrument(instrument string) ([]TaskRecord, error) {
	rows, err := j.db.Query(`
		SELECT correlation_id, instrument, state, reason, filled_size, avg_price, created_at, closed_at
		FROM tasks
		WHERE instrument = ?
		ORDER BY closed_at ASC`, instrument)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		if err := rows.Scan(
			&rec.CorrelationID,
			&rec.Instrument,
			&rec.State,
			&rec.Reason,
			&rec.FilledSize,
			&rec.AvgPrice,
			&rec.CreatedAt,
			&rec.ClosedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
