package entry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	diary_id  TEXT NOT NULL UNIQUE,
	timestamp INTEGER NOT NULL,
	published INTEGER NOT NULL DEFAULT 0,
	doc       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_timestamp ON entries(timestamp);
`

// sqliteStore keeps each entry as a JSON document row; the UNIQUE constraint on
// diary_id enforces the at-most-once rule.
type sqliteStore struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteStore(ctx context.Context, db *sql.DB, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &sqliteStore{db: db, logger: logger}, nil
}

func (s *sqliteStore) IDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT diary_id FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("store: query ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *sqliteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("store: query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		var e Entry
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return nil, fmt.Errorf("store: decode entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Append(ctx context.Context, entries []*Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, e := range entries {
		doc, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("store: encode %s: %w", e.ID, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entries (diary_id, timestamp, published, doc) VALUES (?, ?, ?, ?)`,
			e.ID, e.Timestamp.Unix(), e.Published, string(doc),
		)
		if err != nil {
			return 0, fmt.Errorf("store: insert %s: %w", e.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			s.logger.Printf("store: entry %s already stored, skipping", e.ID)
			continue
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return added, nil
}

func (s *sqliteStore) SetPublished(ctx context.Context, e *Entry) error {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM entries WHERE diary_id = ?`, e.ID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: entry %s not found", e.ID)
	}
	if err != nil {
		return fmt.Errorf("store: load %s: %w", e.ID, err)
	}

	var stored Entry
	if err := json.Unmarshal([]byte(doc), &stored); err != nil {
		return fmt.Errorf("store: decode %s: %w", e.ID, err)
	}
	stored.Published = e.Published
	stored.PublishedAt = e.PublishedAt
	stored.PageURL = e.PageURL

	b, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", e.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE entries SET published = ?, doc = ? WHERE diary_id = ?`,
		stored.Published, string(b), e.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", e.ID, err)
	}
	return nil
}

func (s *sqliteStore) Flush(context.Context) error { return nil }

func (s *sqliteStore) Close(context.Context) error {
	return s.db.Close()
}
