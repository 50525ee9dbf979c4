package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"CampaignScraper/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

// timestampLayout sorts lexically in the same order as time.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// ItemStore is the durable record of the last known status per product title.
type ItemStore interface {
	Get(ctx context.Context, title string) (models.ItemRecord, error)
	Upsert(ctx context.Context, title string, status models.Status) error
}

// DBRepository is the sqlite backed ItemStore.
type DBRepository struct {
	DB *sql.DB

	mu    sync.Mutex // serializes writes
	cache *lru.Cache[string, models.ItemRecord]
	now   func() time.Time
}

// Open opens (or creates) the items database at filepath.
func Open(filepath string, cacheSize int) (*DBRepository, error) {
	db, err := sql.Open("sqlite", filepath)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	// sqlite allows a single writer; one connection avoids SQLITE_BUSY between in-flight orders.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "ping", Err: err}
	}

	createItemsTableSQL := `
	CREATE TABLE IF NOT EXISTS items (
		"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"title" TEXT UNIQUE,
		"status" TEXT,
		"last_checked" TEXT
	);`
	if _, err = db.Exec(createItemsTableSQL); err != nil {
		db.Close()
		return nil, &StorageError{Op: "migrate", Err: err}
	}

	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, models.ItemRecord](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create item cache: %w", err)
	}

	log.Printf("Item store initialized at %s", filepath)
	return &DBRepository{DB: db, cache: cache, now: time.Now}, nil
}

// Close closes the database connection.
func (repo *DBRepository) Close() error {
	return repo.DB.Close()
}

// Get looks up a record by exact title. It returns ErrNotFound when the title
// was never stored and a *StorageError when the database could not be read.
func (repo *DBRepository) Get(ctx context.Context, title string) (models.ItemRecord, error) {
	if rec, ok := repo.cache.Get(title); ok {
		return rec, nil
	}

	var (
		rec         models.ItemRecord
		lastChecked string
	)
	err := repo.DB.QueryRowContext(ctx,
		"SELECT id, title, status, last_checked FROM items WHERE title = ?", title,
	).Scan(&rec.ID, &rec.Title, &rec.Status, &lastChecked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ItemRecord{}, ErrNotFound
	}
	if err != nil {
		return models.ItemRecord{}, &StorageError{Op: "get", Err: err}
	}
	rec.LastCheckedAt = parseTimestamp(lastChecked)

	repo.cache.Add(title, rec)
	return rec, nil
}

// Upsert inserts the title or overwrites its status and refreshes last_checked.
func (repo *DBRepository) Upsert(ctx context.Context, title string, status models.Status) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("upsert: empty title")
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	checkedAt := repo.now().UTC()
	query := `
	INSERT INTO items (title, status, last_checked) VALUES (?, ?, ?)
	ON CONFLICT(title) DO UPDATE SET
		status=excluded.status,
		last_checked=excluded.last_checked;
	`
	if _, err := repo.DB.ExecContext(ctx, query, title, status, checkedAt.Format(timestampLayout)); err != nil {
		repo.cache.Remove(title)
		return &StorageError{Op: "upsert", Err: err}
	}

	var id int64
	if rec, ok := repo.cache.Peek(title); ok {
		id = rec.ID
	} else if err := repo.DB.QueryRowContext(ctx, "SELECT id FROM items WHERE title = ?", title).Scan(&id); err != nil {
		// The write succeeded; only the cache entry is skipped.
		return nil
	}
	repo.cache.Add(title, models.ItemRecord{
		ID:            id,
		Title:         title,
		Status:        models.ParseStatus(string(status)),
		LastCheckedAt: checkedAt,
	})
	return nil
}

// List returns every stored record, most recently checked first.
func (repo *DBRepository) List(ctx context.Context) ([]models.ItemRecord, error) {
	rows, err := repo.DB.QueryContext(ctx, "SELECT id, title, status, last_checked FROM items ORDER BY last_checked DESC, id DESC")
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var items []models.ItemRecord
	for rows.Next() {
		var (
			rec         models.ItemRecord
			lastChecked string
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Status, &lastChecked); err != nil {
			log.Printf("Error scanning item row: %v", err)
			continue
		}
		rec.LastCheckedAt = parseTimestamp(lastChecked)
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return items, nil
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(timestampLayout, value); err == nil {
		return ts
	}
	// databases created by the desktop app stored sqlite's datetime('now')
	if ts, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return ts
	}
	return time.Time{}
}
