package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pfrederiksen/typhoon/internal/status"
)

// FileName is the database file inside the data directory.
const FileName = "history.db"

// storedTimeLayout is fixed width so fetched_at sorts as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB stores fetch history.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so the serve poller and a CLI
	// reader can share the file.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("checking database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &DB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return h, nil
}

// Path returns the database file path.
func (h *DB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}

func (h *DB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fetches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		outcome TEXT NOT NULL,
		used_encoding TEXT NOT NULL,
		data_size INTEGER NOT NULL,
		city_count INTEGER NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_fetched_at ON fetches(fetched_at);
	CREATE INDEX IF NOT EXISTS idx_fetches_outcome ON fetches(outcome);

	-- One row per table row; city holds the normalized name
	CREATE TABLE IF NOT EXISTS city_statuses (
		fetch_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		city TEXT NOT NULL,
		display_city TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (fetch_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_city_statuses_city ON city_statuses(city);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// FetchRecord is one stored fetch.
type FetchRecord struct {
	ID           int64              `json:"id"`
	Source       string             `json:"source"`
	FetchedAt    time.Time          `json:"fetched_at"`
	Outcome      status.Outcome     `json:"outcome"`
	UsedEncoding string             `json:"used_encoding"`
	DataSize     int                `json:"data_size"`
	CityCount    int                `json:"city_count"`
	Result       status.FetchResult `json:"result"`
}

// TimelineEntry is one announcement of a city, from the fetch that first
// showed it.
type TimelineEntry struct {
	FetchID   int64     `json:"fetch_id"`
	FetchedAt time.Time `json:"fetched_at"`
	City      string    `json:"city"`
	Status    string    `json:"status"`
}

// Record stores one fetch and returns its id.
func (h *DB) Record(ctx context.Context, source string, result status.FetchResult, fetchedAt time.Time) (int64, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("serializing result: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO fetches (source, fetched_at, outcome, used_encoding, data_size, city_count, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		source,
		fetchedAt.UTC().Format(storedTimeLayout),
		string(result.Outcome()),
		result.UsedEncoding,
		result.DataSize,
		len(result.CityStatuses),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting fetch: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading fetch id: %w", err)
	}

	for i, cs := range result.CityStatuses {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO city_statuses (fetch_id, position, city, display_city, status)
		VALUES (?, ?, ?, ?, ?)
		`, id, i, status.NormalizeCity(cs.City), cs.City, cs.Status); err != nil {
			return 0, fmt.Errorf("inserting city status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing fetch: %w", err)
	}

	return id, nil
}

// Recent returns up to limit fetches, newest first.
func (h *DB) Recent(ctx context.Context, limit int) ([]*FetchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.QueryContext(ctx, `
	SELECT id, source, fetched_at, outcome, used_encoding, data_size, city_count, result_json
	FROM fetches
	ORDER BY fetched_at DESC, id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying fetches: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	records := make([]*FetchRecord, 0)
	for rows.Next() {
		record, err := scanFetch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fetches: %w", err)
	}

	return records, nil
}

// LastSuccess returns the newest fetch that did not fail, or nil when there
// is none.
func (h *DB) LastSuccess(ctx context.Context) (*FetchRecord, error) {
	row := h.db.QueryRowContext(ctx, `
	SELECT id, source, fetched_at, outcome, used_encoding, data_size, city_count, result_json
	FROM fetches
	WHERE outcome IN (?, ?)
	ORDER BY fetched_at DESC, id DESC
	LIMIT 1
	`, string(status.OutcomeOK), string(status.OutcomeNoRows))

	record, err := scanFetch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// CityTimeline returns the announcements of one city, newest first, with
// consecutive identical statuses collapsed to the fetch that first showed
// them. At most limit entries are returned.
func (h *DB) CityTimeline(ctx context.Context, city string, limit int) ([]TimelineEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.QueryContext(ctx, `
	SELECT f.id, f.fetched_at, c.display_city, c.status
	FROM city_statuses c
	JOIN fetches f ON f.id = c.fetch_id
	WHERE c.city = ?
	ORDER BY f.fetched_at ASC, f.id ASC, c.position ASC
	`, status.NormalizeCity(city))
	if err != nil {
		return nil, fmt.Errorf("querying city timeline: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var (
		entries  []TimelineEntry
		lastID   int64 = -1
		lastText string
	)
	for rows.Next() {
		var e TimelineEntry
		var fetchedAt string
		if err := rows.Scan(&e.FetchID, &fetchedAt, &e.City, &e.Status); err != nil {
			return nil, fmt.Errorf("scanning city timeline: %w", err)
		}
		// A city listed twice in one fetch keeps its first row.
		if e.FetchID == lastID {
			continue
		}
		lastID = e.FetchID
		if len(entries) > 0 && e.Status == lastText {
			continue
		}
		lastText = e.Status
		e.FetchedAt = parseTimestamp(fetchedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating city timeline: %w", err)
	}

	// Newest first.
	out := make([]TimelineEntry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Prune deletes fetches older than before and returns how many were removed.
func (h *DB) Prune(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UTC().Format(storedTimeLayout)

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
	DELETE FROM city_statuses
	WHERE fetch_id IN (SELECT id FROM fetches WHERE fetched_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("pruning city statuses: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM fetches WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning fetches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned fetches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFetch(s scanner) (*FetchRecord, error) {
	var (
		record     FetchRecord
		fetchedAt  string
		outcome    string
		resultJSON string
	)
	err := s.Scan(
		&record.ID,
		&record.Source,
		&fetchedAt,
		&outcome,
		&record.UsedEncoding,
		&record.DataSize,
		&record.CityCount,
		&resultJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning fetch: %w", err)
	}

	record.FetchedAt = parseTimestamp(fetchedAt)
	record.Outcome = status.Outcome(outcome)
	if err := json.Unmarshal([]byte(resultJSON), &record.Result); err != nil {
		return nil, fmt.Errorf("parsing stored result: %w", err)
	}

	return &record, nil
}

// timestampFormats contains the timestamp formats a fetched_at value may use.
// Rows written by Record use storedTimeLayout; the rest cover hand-edited rows.
var timestampFormats = []string{
	storedTimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
