// Package sqlite stores documents as JSON columns in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/storage"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps read-modify-write updates serialized
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS trading_records (
    user_email TEXT PRIMARY KEY,
    document TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL,
    last_updated TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS portfolios (
    id TEXT PRIMARY KEY,
    user_email TEXT NOT NULL,
    document TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    id TEXT PRIMARY KEY,
    portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    user_email TEXT NOT NULL,
    document TEXT NOT NULL,
    timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_portfolios_user_created ON portfolios(user_email, created_at);
CREATE INDEX IF NOT EXISTS idx_trades_portfolio ON trades(portfolio_id);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Store) SaveTradingRecord(ctx context.Context, rec models.TradingRecord) error {
	if strings.TrimSpace(rec.UserEmail) == "" {
		return fmt.Errorf("user email is required")
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trading record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO trading_records (user_email, document, timestamp)
VALUES (?, ?, ?)
ON CONFLICT(user_email) DO UPDATE SET
    document=excluded.document,
    timestamp=excluded.timestamp,
    updated_at=CURRENT_TIMESTAMP
`, rec.UserEmail, string(doc), stamp(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("upsert trading record: %w", err)
	}
	return nil
}

func (s *Store) GetTradingRecord(ctx context.Context, email string) (*models.TradingRecord, error) {
	return getRecord(ctx, s.db, email)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q querier, email string) (*models.TradingRecord, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT document FROM trading_records WHERE user_email = ? LIMIT 1`, email).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trading record: %w", err)
	}
	var rec models.TradingRecord
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("decode trading record: %w", err)
	}
	return &rec, nil
}

func (s *Store) ListUserEmails(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_email FROM trading_records ORDER BY user_email ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users rows: %w", err)
	}
	return emails, nil
}

func (s *Store) SaveAnalysis(ctx context.Context, email string, a models.Analysis) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := getRecord(ctx, tx, email)
	if err != nil {
		return err
	}
	rec.Apply(a)
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trading record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE trading_records
SET document = ?, updated_at = CURRENT_TIMESTAMP
WHERE user_email = ?
`, string(doc), email); err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}
	return tx.Commit()
}

func (s *Store) SavePortfolio(ctx context.Context, doc models.PortfolioDoc) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal portfolio: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO portfolios (id, user_email, document, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET document=excluded.document
`, doc.ID, doc.UserEmail, string(data), stamp(doc.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

func (s *Store) SaveTrade(ctx context.Context, doc models.TradeDoc) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if strings.TrimSpace(doc.PortfolioID) == "" {
		return fmt.Errorf("trade portfolio id is required")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO trades (id, portfolio_id, user_email, document, timestamp)
VALUES (?, ?, ?, ?, ?)
`, doc.ID, doc.PortfolioID, doc.UserEmail, string(data), stamp(doc.Timestamp))
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (s *Store) EnsureUser(ctx context.Context, email string) (models.UserDoc, error) {
	now := stamp(s.now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, email, created_at, last_updated)
VALUES (?, ?, ?, ?)
ON CONFLICT(email) DO UPDATE SET last_updated=excluded.last_updated
`, uuid.NewString(), email, now, now)
	if err != nil {
		return models.UserDoc{}, fmt.Errorf("upsert user: %w", err)
	}

	var u models.UserDoc
	var created, updated string
	err = s.db.QueryRowContext(ctx, `SELECT id, email, created_at, last_updated FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &created, &updated)
	if err != nil {
		return models.UserDoc{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	u.LastUpdated, _ = time.Parse(time.RFC3339Nano, updated)
	return u, nil
}

var _ storage.Store = (*Store)(nil)
