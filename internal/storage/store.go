package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/raine/estate-pricer/internal/item"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// VisionCacheEntry is a cached vision model response for one photo.
type VisionCacheEntry struct {
	Model        string
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// CompsCacheEntry is a cached marketplace lookup.
type CompsCacheEntry struct {
	Comps     item.Comps
	QueriedAt time.Time
}

// Store defines the cache persistence used by the pipeline.
type Store interface {
	GetVisionCache(key string) (*VisionCacheEntry, error)
	SetVisionCache(key string, entry *VisionCacheEntry) error

	GetCompsCache(key string, maxAge time.Duration) (*CompsCacheEntry, error)
	SetCompsCache(key string, comps item.Comps) error
	PruneCompsCache(maxAge time.Duration) (int64, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the cache database at dbPath. ":memory:" keeps the
// caches for the lifetime of the process.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// WAL mode and busy timeout for concurrent handlers
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("dbPath", dbPath).Msg("failed to restrict database permissions")
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	visionCacheQuery := `
	CREATE TABLE IF NOT EXISTS vision_cache (
		cache_key TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		response_text TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(visionCacheQuery); err != nil {
		return fmt.Errorf("failed to create vision_cache table: %w", err)
	}

	compsCacheQuery := `
	CREATE TABLE IF NOT EXISTS comps_cache (
		cache_key TEXT PRIMARY KEY,
		comps_json TEXT NOT NULL,
		queried_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(compsCacheQuery); err != nil {
		return fmt.Errorf("failed to create comps_cache table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetVisionCache retrieves a cached vision response. Returns nil, nil when
// there is no entry.
func (s *SQLiteStore) GetVisionCache(key string) (*VisionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry VisionCacheEntry
	err := s.db.QueryRow(
		"SELECT model, response_text, input_tokens, output_tokens FROM vision_cache WHERE cache_key = ?",
		key,
	).Scan(&entry.Model, &entry.Text, &entry.InputTokens, &entry.OutputTokens)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}
	return &entry, nil
}

// SetVisionCache stores a vision response.
func (s *SQLiteStore) SetVisionCache(key string, entry *VisionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO vision_cache (cache_key, model, response_text, input_tokens, output_tokens)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			model = excluded.model,
			response_text = excluded.response_text,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			created_at = CURRENT_TIMESTAMP
	`, key, entry.Model, entry.Text, entry.InputTokens, entry.OutputTokens)
	if err != nil {
		return fmt.Errorf("failed to cache vision result: %w", err)
	}
	return nil
}

// GetCompsCache returns a cached lookup younger than maxAge, or nil, nil.
func (s *SQLiteStore) GetCompsCache(key string, maxAge time.Duration) (*CompsCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		compsJSON string
		queriedAt int64
	)
	err := s.db.QueryRow(
		"SELECT comps_json, queried_at FROM comps_cache WHERE cache_key = ?",
		key,
	).Scan(&compsJSON, &queriedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query comps cache: %w", err)
	}

	ts := time.Unix(queriedAt, 0)
	if maxAge > 0 && time.Since(ts) > maxAge {
		return nil, nil
	}

	var comps item.Comps
	if err := json.Unmarshal([]byte(compsJSON), &comps); err != nil {
		return nil, fmt.Errorf("failed to decode cached comps: %w", err)
	}
	return &CompsCacheEntry{Comps: comps, QueriedAt: ts}, nil
}

// SetCompsCache stores a lookup result.
func (s *SQLiteStore) SetCompsCache(key string, comps item.Comps) error {
	data, err := json.Marshal(comps)
	if err != nil {
		return fmt.Errorf("failed to encode comps: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO comps_cache (cache_key, comps_json, queried_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			comps_json = excluded.comps_json,
			queried_at = excluded.queried_at
	`, key, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to cache comps: %w", err)
	}
	return nil
}

// PruneCompsCache removes lookups older than maxAge and returns how many
// rows were deleted.
func (s *SQLiteStore) PruneCompsCache(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.Exec("DELETE FROM comps_cache WHERE queried_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune comps cache: %w", err)
	}
	return res.RowsAffected()
}
