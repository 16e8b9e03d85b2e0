package store

// Migrations returns the built-in schema migration set in version
// order. The event log is the source of truth; agents, messages,
// reservations and cells are derived tables owned exclusively by the
// projection engine and rebuildable from the log. Memories are owned
// by the memory store and keyed by content id, not sequence.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "event log",
			Up: `
CREATE TABLE events (
    project_key TEXT NOT NULL,
    seq INTEGER NOT NULL,
    type TEXT NOT NULL,
    ts INTEGER NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (project_key, seq)
);
`,
			Down: `DROP TABLE events;`,
		},
		{
			Version: 2,
			Name:    "coordination projections",
			Up: `
CREATE TABLE agents (
    project_key TEXT NOT NULL,
    name TEXT NOT NULL,
    registered_at INTEGER NOT NULL,
    last_seen_at INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    PRIMARY KEY (project_key, name)
);

CREATE TABLE messages (
    id TEXT PRIMARY KEY,
    project_key TEXT NOT NULL,
    sender TEXT NOT NULL,
    recipients TEXT NOT NULL DEFAULT '[]',
    subject TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    sent_at INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    read_by TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX messages_inbox ON messages (project_key, sent_at DESC, seq DESC);

CREATE TABLE reservations (
    project_key TEXT NOT NULL,
    file_path TEXT NOT NULL,
    holder TEXT NOT NULL,
    acquired_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    released_at INTEGER,
    PRIMARY KEY (project_key, file_path)
);

CREATE TABLE cells (
    id TEXT PRIMARY KEY,
    project_key TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'open',
    parent TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    closed_at INTEGER
);
CREATE INDEX cells_parent ON cells (project_key, parent);
`,
			Down: `
DROP TABLE cells;
DROP TABLE reservations;
DROP TABLE messages;
DROP TABLE agents;
`,
		},
		{
			Version: 3,
			Name:    "memory store",
			Up: `
CREATE TABLE memories (
    id TEXT PRIMARY KEY,
    collection TEXT NOT NULL DEFAULT 'default',
    content TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    tags TEXT NOT NULL DEFAULT '[]',
    embedding BLOB,
    confidence REAL NOT NULL DEFAULT 1.0,
    created_at INTEGER NOT NULL,
    last_validated_at INTEGER NOT NULL
);
CREATE INDEX memories_collection ON memories (collection, created_at DESC);

CREATE VIRTUAL TABLE memories_fts USING fts5(
    content,
    tags,
    content=memories
);

CREATE TRIGGER memories_ai AFTER INSERT ON memories BEGIN
    INSERT INTO memories_fts(rowid, content, tags) VALUES (new.rowid, new.content, new.tags);
END;

CREATE TRIGGER memories_ad AFTER DELETE ON memories BEGIN
    INSERT INTO memories_fts(memories_fts, rowid, content, tags) VALUES ('delete', old.rowid, old.content, old.tags);
END;

CREATE TRIGGER memories_au AFTER UPDATE ON memories BEGIN
    INSERT INTO memories_fts(memories_fts, rowid, content, tags) VALUES ('delete', old.rowid, old.content, old.tags);
    INSERT INTO memories_fts(rowid, content, tags) VALUES (new.rowid, new.content, new.tags);
END;
`,
			Down: `
DROP TRIGGER memories_au;
DROP TRIGGER memories_ad;
DROP TRIGGER memories_ai;
DROP TABLE memories_fts;
DROP TABLE memories;
`,
		},
	}
}
