package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/hashutil"
)

const (
	defaultPath = "data/crossarb.db"
)

// Store wraps a SQLite DB connection.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTables ensures the full schema exists.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropTables removes every table.
func (s *Store) DropTables(ctx context.Context) error {
	stmts := []string{
		`DROP TABLE IF EXISTS quotes;`,
		`DROP TABLE IF EXISTS runs;`,
		`DROP TABLE IF EXISTS opportunities;`,
		`DROP TABLE IF EXISTS allocations;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ClearTables truncates every table.
func (s *Store) ClearTables(ctx context.Context) error {
	stmts := []string{
		`DELETE FROM quotes;`,
		`DELETE FROM runs;`,
		`DELETE FROM opportunities;`,
		`DELETE FROM allocations;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS quotes (
	venue TEXT NOT NULL,
	market_key TEXT NOT NULL,
	category_slug TEXT,
	title TEXT,
	question TEXT,
	yes_price REAL,
	no_price REAL,
	closed INTEGER NOT NULL DEFAULT 0,
	yes_token_id TEXT,
	no_token_id TEXT,
	quote_hash TEXT,
	captured_at TEXT,
	last_seen_at TEXT,
	PRIMARY KEY (venue, market_key)
);
CREATE INDEX IF NOT EXISTS quotes_slug_idx ON quotes(venue, category_slug);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at TEXT,
	finished_at TEXT,
	policy TEXT,
	total_capital_usd REAL,
	total_deployed_usd REAL,
	total_unallocated_usd REAL,
	total_expected_profit_usd REAL,
	overall_roi_percent REAL,
	warnings_json TEXT
);

CREATE TABLE IF NOT EXISTS opportunities (
	run_id TEXT NOT NULL,
	pair_id TEXT NOT NULL,
	comparison TEXT NOT NULL,
	venue_a TEXT,
	venue_b TEXT,
	market_key_a TEXT,
	market_key_b TEXT,
	title TEXT,
	question TEXT,
	direction TEXT,
	cost REAL,
	profit REAL,
	roi_percent REAL,
	ask1_roi_percent REAL,
	ask2_roi_percent REAL,
	review_equivalent INTEGER,
	review_reason TEXT,
	pair_json TEXT,
	created_at TEXT,
	PRIMARY KEY (run_id, pair_id, comparison)
);
CREATE INDEX IF NOT EXISTS opportunities_run_idx ON opportunities(run_id);

CREATE TABLE IF NOT EXISTS allocations (
	run_id TEXT NOT NULL,
	pair_id TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	proposed_usd REAL,
	allocated_usd REAL,
	bet_leg_a_usd REAL,
	bet_leg_b_usd REAL,
	price_leg_a REAL,
	price_leg_b REAL,
	expected_profit_usd REAL,
	roi_percent REAL,
	created_at TEXT,
	PRIMARY KEY (run_id, pair_id)
);
`

// UpsertQuotes inserts or refreshes the latest quote per (venue, market_key).
func (s *Store) UpsertQuotes(ctx context.Context, quotes []collectors.MarketQuote, capturedAt time.Time) error {
	if len(quotes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, quoteUpsertSQL)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	captured := formatTime(capturedAt)
	for _, q := range quotes {
		if q.MarketKey == "" {
			continue
		}
		if err := execQuoteUpsert(ctx, stmt, q, captured, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

const quoteUpsertSQL = `
INSERT INTO quotes (
	venue, market_key, category_slug, title, question,
	yes_price, no_price, closed, yes_token_id, no_token_id,
	quote_hash, captured_at, last_seen_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(venue, market_key) DO UPDATE SET
	category_slug=excluded.category_slug,
	title=excluded.title,
	question=excluded.question,
	yes_price=excluded.yes_price,
	no_price=excluded.no_price,
	closed=excluded.closed,
	yes_token_id=excluded.yes_token_id,
	no_token_id=excluded.no_token_id,
	quote_hash=excluded.quote_hash,
	captured_at=excluded.captured_at,
	last_seen_at=excluded.last_seen_at;
`

func execQuoteUpsert(ctx context.Context, stmt *sql.Stmt, q collectors.MarketQuote, captured, ts string) error {
	quoteHash := hashutil.HashStrings(
		string(q.Venue), q.MarketKey, q.Title, q.Question,
		strconv.FormatFloat(q.YesPrice, 'f', -1, 64),
		strconv.FormatFloat(q.NoPrice, 'f', -1, 64),
	)
	_, err := stmt.ExecContext(
		ctx,
		string(q.Venue),
		q.MarketKey,
		q.CategorySlug,
		q.Title,
		q.Question,
		q.YesPrice,
		q.NoPrice,
		q.Closed,
		q.YesTokenID,
		q.NoTokenID,
		quoteHash,
		captured,
		ts,
	)
	return err
}

// ListQuotes returns the stored quotes for one venue, used to warm in-memory
// books before live snapshots arrive.
func (s *Store) ListQuotes(ctx context.Context, venue collectors.Venue) ([]collectors.MarketQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT venue, market_key, category_slug, title, question,
			yes_price, no_price, closed, yes_token_id, no_token_id
		FROM quotes WHERE venue = ?`, string(venue))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []collectors.MarketQuote
	for rows.Next() {
		var q collectors.MarketQuote
		var v string
		if err := rows.Scan(
			&v, &q.MarketKey, &q.CategorySlug, &q.Title, &q.Question,
			&q.YesPrice, &q.NoPrice, &q.Closed, &q.YesTokenID, &q.NoTokenID,
		); err != nil {
			return nil, err
		}
		q.Venue = collectors.Venue(v)
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
