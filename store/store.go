// Package store persists scrape results to SQLite. Writes are
// append-only: results are never updated or deleted by the service.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/uselens/pagelens/models"
)

// Store is a SQLite-backed scrape history store.
type Store struct {
	db   *sql.DB
	path string
}

// New creates a Store with the given database path.
// Use ":memory:" for an in-memory database.
func New(path string) *Store {
	return &Store{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (s *Store) Open() error {
	conn, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("store: open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("store: connect: %w", err)
	}

	// Wait up to 5 seconds on lock contention instead of failing with
	// "database is locked".
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("store: set busy timeout: %w", err)
	}

	// WAL allows concurrent reads during writes. Not supported in-memory.
	if s.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("store: enable WAL mode: %w", err)
		}
	}

	s.db = conn

	if err := s.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("store: create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scrapes (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			extracted_data TEXT,
			ai_analysis TEXT NOT NULL DEFAULT '',
			timestamp INTEGER NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			word_count INTEGER NOT NULL DEFAULT 0,
			image_count INTEGER NOT NULL DEFAULT 0,
			link_count INTEGER NOT NULL DEFAULT 0,
			paragraph_count INTEGER NOT NULL DEFAULT 0,
			scrape_duration INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scrapes_created_at ON scrapes(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save inserts a scrape result and returns the assigned identifier.
// The record is written as given; only the ID and the created_at marker
// are assigned here.
func (s *Store) Save(ctx context.Context, result *models.ScrapeResult) (string, error) {
	id := uuid.New().String()

	var extracted sql.NullString
	if result.ExtractedData != nil {
		raw, err := json.Marshal(result.ExtractedData)
		if err != nil {
			return "", fmt.Errorf("store: marshal extracted data: %w", err)
		}
		extracted = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrapes (
			id, url, title, description, content, extracted_data, ai_analysis,
			timestamp, status, error_message,
			word_count, image_count, link_count, paragraph_count, scrape_duration,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, result.URL, result.Title, result.Description, result.Content,
		extracted, result.AIAnalysis,
		result.Timestamp, result.Status, result.ErrorMessage,
		result.Metadata.WordCount, result.Metadata.ImageCount,
		result.Metadata.LinkCount, result.Metadata.ParagraphCount,
		result.Metadata.ScrapeDuration,
		time.Now().UTC().UnixNano())
	if err != nil {
		return "", fmt.Errorf("store: insert scrape: %w", err)
	}

	return id, nil
}

const scrapeColumns = `id, url, title, description, content, extracted_data, ai_analysis,
	timestamp, status, error_message,
	word_count, image_count, link_count, paragraph_count, scrape_duration`

// FindByID retrieves a single scrape result.
func (s *Store) FindByID(ctx context.Context, id string) (*models.ScrapeResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scrapeColumns+` FROM scrapes WHERE id = ?`, id)

	result, err := scanScrape(row)
	if err == sql.ErrNoRows {
		return nil, models.NewScrapeError(models.ErrCodeNotFound, "scrape not found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("store: find scrape: %w", err)
	}
	return result, nil
}

// List returns the most recently stored results, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*models.ScrapeResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scrapeColumns+` FROM scrapes ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list scrapes: %w", err)
	}
	defer rows.Close()

	results := []*models.ScrapeResult{}
	for rows.Next() {
		result, err := scanScrape(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan scrape: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanScrape(sc scanner) (*models.ScrapeResult, error) {
	var result models.ScrapeResult
	var extracted sql.NullString

	err := sc.Scan(&result.ID, &result.URL, &result.Title, &result.Description,
		&result.Content, &extracted, &result.AIAnalysis,
		&result.Timestamp, &result.Status, &result.ErrorMessage,
		&result.Metadata.WordCount, &result.Metadata.ImageCount,
		&result.Metadata.LinkCount, &result.Metadata.ParagraphCount,
		&result.Metadata.ScrapeDuration)
	if err != nil {
		return nil, err
	}

	if extracted.Valid && strings.TrimSpace(extracted.String) != "" {
		var data models.ExtractedData
		if err := json.Unmarshal([]byte(extracted.String), &data); err != nil {
			return nil, fmt.Errorf("unmarshal extracted data: %w", err)
		}
		result.ExtractedData = &data
	}

	result.Storage = models.StorageDurable
	return &result, nil
}
