package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"minuet/internal/config"
)

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "minuet.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewEntry inserts a new entry for an uploaded recording in processing state.
func (s *Store) NewEntry(ctx context.Context, filename, userID, sessionID string) (*Entry, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New("filename is required")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO entries (
            user_id, session_id, filename, storage_path, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableString(userID),
		nullableString(sessionID),
		filename,
		nil,
		StatusProcessing,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// SetStoragePath records the durable location of the raw audio. The path is
// write-once: a second call for the same entry is rejected.
func (s *Store) SetStoragePath(ctx context.Context, id int64, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("storage path is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE entries SET storage_path = ?, updated_at = ?
         WHERE id = ? AND (storage_path IS NULL OR storage_path = '')`,
		path,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set storage path: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %d missing or storage path already set", id)
	}
	return nil
}

// GetByID fetches an entry by identifier. Returns nil when the entry does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// List returns entries newest first, optionally filtered by correlation keys.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries`
	var (
		clauses []string
		args    []any
	)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkStageReady records a completed stage as a single atomic unit: the
// artifact row is upserted, the stage's readiness flag is set, and the entry
// status is rederived from the resulting flags. Concurrent completions for the
// same entry serialize on the transaction; flags only ever go false to true.
func (s *Store) MarkStageReady(ctx context.Context, entryID int64, stage Stage, storagePath, source string) (*Entry, error) {
	if strings.TrimSpace(storagePath) == "" {
		return nil, errors.New("artifact storage path is required")
	}

	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, entryID)
		entry, err := scanEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("entry %d not found", entryID)
		}
		if err != nil {
			return fmt.Errorf("read entry: %w", err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO artifacts (entry_id, stage, storage_path, source, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(entry_id, stage) DO UPDATE SET
                 storage_path = excluded.storage_path,
                 source = excluded.source,
                 updated_at = excluded.updated_at`,
			entryID,
			stage,
			storagePath,
			nullableString(source),
			timestamp,
			timestamp,
		); err != nil {
			return fmt.Errorf("upsert artifact: %w", err)
		}

		flags := entry.Flags
		flags.set(stage)
		status := DeriveStatus(flags, entry.Status == StatusFailed)

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE entries
             SET affect_ready = ?, transcript_ready = ?, summary_ready = ?,
                 response_ready = ?, music_ready = ?, status = ?, updated_at = ?
             WHERE id = ?`,
			boolToInt(flags.Affect),
			boolToInt(flags.Transcript),
			boolToInt(flags.Summary),
			boolToInt(flags.Response),
			boolToInt(flags.Music),
			status,
			timestamp,
			entryID,
		); err != nil {
			return fmt.Errorf("update entry flags: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, entryID)
}

// MarkStageFailed flips the entry to failed with the given message. Flags
// already set remain true; failure never regresses a readiness flag.
func (s *Store) MarkStageFailed(ctx context.Context, entryID int64, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE entries SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		entryID,
	)
	if err != nil {
		return fmt.Errorf("mark entry failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %d not found", entryID)
	}
	return nil
}

// GetArtifact fetches the artifact row for one stage of one entry. Returns
// nil when no artifact has been recorded.
func (s *Store) GetArtifact(ctx context.Context, entryID int64, stage Stage) (*Artifact, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, entry_id, stage, storage_path, source, created_at, updated_at
         FROM artifacts WHERE entry_id = ? AND stage = ?`,
		entryID,
		stage,
	)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return artifact, nil
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM entries GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("entry stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const entryColumns = "id, user_id, session_id, filename, storage_path, status, affect_ready, transcript_ready, summary_ready, response_ready, music_ready, error_message, created_at, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id              int64
		userID          sql.NullString
		sessionID       sql.NullString
		filename        string
		storagePath     sql.NullString
		statusStr       string
		affectReady     sql.NullInt64
		transcriptReady sql.NullInt64
		summaryReady    sql.NullInt64
		responseReady   sql.NullInt64
		musicReady      sql.NullInt64
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&sessionID,
		&filename,
		&storagePath,
		&statusStr,
		&affectReady,
		&transcriptReady,
		&summaryReady,
		&responseReady,
		&musicReady,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:          id,
		UserID:      userID.String,
		SessionID:   sessionID.String,
		Filename:    filename,
		StoragePath: storagePath.String,
		Status:      Status(statusStr),
		Flags: Flags{
			Affect:     affectReady.Int64 != 0,
			Transcript: transcriptReady.Int64 != 0,
			Summary:    summaryReady.Int64 != 0,
			Response:   responseReady.Int64 != 0,
			Music:      musicReady.Int64 != 0,
		},
		ErrorMessage: errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		id          int64
		entryID     int64
		stageStr    string
		storagePath string
		source      sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &entryID, &stageStr, &storagePath, &source, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	artifact := &Artifact{
		ID:          id,
		EntryID:     entryID,
		Stage:       Stage(stageStr),
		StoragePath: storagePath,
		Source:      source.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artifact.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		artifact.UpdatedAt = updated
	}
	return artifact, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
