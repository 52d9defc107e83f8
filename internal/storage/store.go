package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// VisionCacheEntry is a cached model answer for one image.
type VisionCacheEntry struct {
	Model     string
	Response  string // cleaned JSON text as returned by the model
	CreatedAt time.Time
}

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// Store defines the persistence used by the analyzer cache and the bot.
type Store interface {
	Close() error

	// Vision cache methods
	GetVisionCache(imageHash string) (*VisionCacheEntry, error)
	SetVisionCache(imageHash string, entry *VisionCacheEntry) error
	PruneVisionCache(maxAge time.Duration) (int64, error)

	// Allowed users methods
	IsUserAllowed(telegramID int64) (bool, error)
	AddAllowedUser(telegramID, addedBy int64) error
	RemoveAllowedUser(telegramID int64) error
	GetAllowedUsers() ([]AllowedUser, error)
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the database at dbPath. Use ":memory:"
// for a throwaway store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions (only works once the file exists)
	if dbPath != ":memory:" {
		if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
			db.Close()
			return nil, fmt.Errorf("failed to set database permissions: %w", err)
		}
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	visionCacheQuery := `
	CREATE TABLE IF NOT EXISTS vision_cache (
		image_hash TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(visionCacheQuery); err != nil {
		return fmt.Errorf("failed to create vision_cache table: %w", err)
	}

	allowedUsersQuery := `
	CREATE TABLE IF NOT EXISTS allowed_users (
		telegram_id INTEGER PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		added_by INTEGER
	);
	`
	if _, err := s.db.Exec(allowedUsersQuery); err != nil {
		return fmt.Errorf("failed to create allowed_users table: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetVisionCache retrieves a cached model answer by image hash.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetVisionCache(imageHash string) (*VisionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry VisionCacheEntry
	err := s.db.QueryRow(
		"SELECT model, response, created_at FROM vision_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&entry.Model, &entry.Response, &entry.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}

	return &entry, nil
}

// SetVisionCache stores a model answer in the cache.
func (s *SQLiteStore) SetVisionCache(imageHash string, entry *VisionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO vision_cache (image_hash, model, response)
		VALUES (?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			model = excluded.model,
			response = excluded.response,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, entry.Model, entry.Response)

	if err != nil {
		return fmt.Errorf("failed to cache vision result: %w", err)
	}
	return nil
}

// PruneVisionCache deletes cache entries older than maxAge and returns the
// number of deleted rows.
func (s *SQLiteStore) PruneVisionCache(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	modifier := fmt.Sprintf("-%d seconds", int64(maxAge.Seconds()))
	res, err := s.db.Exec("DELETE FROM vision_cache WHERE created_at < datetime('now', ?)", modifier)
	if err != nil {
		return 0, fmt.Errorf("failed to prune vision cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}

	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)

	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at, telegram_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		var addedBy sql.NullInt64
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &addedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		user.AddedBy = addedBy.Int64
		users = append(users, user)
	}

	return users, rows.Err()
}
