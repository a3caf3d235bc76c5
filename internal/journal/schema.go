package journal

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id          TEXT,
    session_id       TEXT,
    filename         TEXT NOT NULL,
    storage_path     TEXT,
    status           TEXT NOT NULL DEFAULT 'processing',
    affect_ready     INTEGER NOT NULL DEFAULT 0,
    transcript_ready INTEGER NOT NULL DEFAULT 0,
    summary_ready    INTEGER NOT NULL DEFAULT 0,
    response_ready   INTEGER NOT NULL DEFAULT 0,
    music_ready      INTEGER NOT NULL DEFAULT 0,
    error_message    TEXT,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_user_id ON entries(user_id);
CREATE INDEX IF NOT EXISTS idx_entries_session_id ON entries(session_id);
CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);

CREATE TABLE IF NOT EXISTS artifacts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id     INTEGER NOT NULL REFERENCES entries(id),
    stage        TEXT NOT NULL,
    storage_path TEXT NOT NULL,
    source       TEXT,
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL,
    UNIQUE(entry_id, stage)
);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
