package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ca-srg/aisearch/internal/types"
	_ "modernc.org/sqlite"
)

const backendSQLite = "sqlite"

// SQLiteStore persists searches and crawler snapshots in a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// ":memory:" yields a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// writes arrive from background goroutines; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	createTablesSQL := `
		CREATE TABLE IF NOT EXISTS searches (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			results TEXT NOT NULL,
			total_results INTEGER NOT NULL,
			search_time INTEGER NOT NULL,
			timestamp_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_searches_timestamp ON searches (timestamp_ms DESC);
		CREATE TABLE IF NOT EXISTS crawler_status (
			id TEXT PRIMARY KEY,
			taken_at_ms INTEGER NOT NULL,
			active_count INTEGER NOT NULL,
			statuses TEXT NOT NULL
		);
	`
	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Backend() string {
	return backendSQLite
}

func (s *SQLiteStore) SaveSearch(ctx context.Context, record *types.SearchRecord) error {
	if record == nil {
		return fmt.Errorf("search record cannot be nil")
	}

	results, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, results, total_results, search_time, timestamp_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.Query, string(results), record.TotalResults, record.SearchTime,
		record.Timestamp.UnixMilli(),
	)
	if err != nil {
		return &StoreError{Op: "save_search", Backend: backendSQLite, Err: err}
	}
	return nil
}

func (s *SQLiteStore) RecentSearches(ctx context.Context, limit int) ([]types.SearchSummary, error) {
	if limit <= 0 {
		return []types.SearchSummary{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT query, total_results, search_time, timestamp_ms
		 FROM searches ORDER BY timestamp_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &StoreError{Op: "recent_searches", Backend: backendSQLite, Err: err}
	}
	defer rows.Close()

	summaries := make([]types.SearchSummary, 0, limit)
	for rows.Next() {
		var (
			summary types.SearchSummary
			tsMs    int64
		)
		if err := rows.Scan(&summary.Query, &summary.TotalResults, &summary.SearchTime, &tsMs); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		summary.Timestamp = time.UnixMilli(tsMs).UTC()
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return summaries, nil
}

func (s *SQLiteStore) CountSearches(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM searches").Scan(&total); err != nil {
		return 0, &StoreError{Op: "count_searches", Backend: backendSQLite, Err: err}
	}
	return total, nil
}

func (s *SQLiteStore) AverageSearchTime(ctx context.Context) (float64, error) {
	var avg float64
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(AVG(search_time), 0) FROM searches")
	if err := row.Scan(&avg); err != nil {
		return 0, &StoreError{Op: "average_search_time", Backend: backendSQLite, Err: err}
	}
	return avg, nil
}

func (s *SQLiteStore) SaveCrawlerSnapshot(ctx context.Context, snapshot *types.CrawlerSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("crawler snapshot cannot be nil")
	}

	statuses, err := json.Marshal(snapshot.Statuses)
	if err != nil {
		return fmt.Errorf("failed to encode statuses: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crawler_status (id, taken_at_ms, active_count, statuses) VALUES (?, ?, ?, ?)`,
		snapshot.ID, snapshot.TakenAt.UnixMilli(), snapshot.ActiveCount, string(statuses),
	)
	if err != nil {
		return &StoreError{Op: "save_crawler_snapshot", Backend: backendSQLite, Err: err}
	}
	return nil
}

// CountCrawlerSnapshots returns the number of stored crawler snapshots
func (s *SQLiteStore) CountCrawlerSnapshots(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM crawler_status").Scan(&total); err != nil {
		return 0, &StoreError{Op: "count_crawler_snapshots", Backend: backendSQLite, Err: err}
	}
	return total, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
