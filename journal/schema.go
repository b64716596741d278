package journal

const Schema = `
CREATE TABLE IF NOT EXISTS messages (
	message_id TEXT NOT NULL,
	correlation_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	sender TEXT NOT NULL,
	recipient TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_correlation ON messages(correlation_id);

CREATE TABLE IF NOT EXISTS dead_letters (
	message_id TEXT PRIMARY KEY,
	correlation_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	sender TEXT NOT NULL,
	recipient TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	reason TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	correlation_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	state TEXT NOT NULL,
	reason TEXT NOT NULL,
	filled_size TEXT NOT NULL,
	avg_price TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	closed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_instrument ON tasks(instrument);
`
