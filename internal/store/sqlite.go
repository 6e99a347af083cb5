// File: internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	// Pure-Go sqlite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS abandoned (
	x   INTEGER NOT NULL,
	y   INTEGER NOT NULL,
	dir TEXT    NOT NULL,
	PRIMARY KEY (x, y, dir)
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

const totalKey = "total_abandoned"

// SQLiteOptions tunes the durable backend.
type SQLiteOptions struct {
	// FlushInterval is how often queued additions are written out by the
	// background flusher. Zero selects a sensible default.
	FlushInterval time.Duration
}

// SQLite is the durable backend. It mirrors the database into memory at open
// so every query is answered without touching disk, queues additions, and
// flushes them from a background goroutine. Flush failures are logged and the
// batch is requeued; the in-memory mirror stays authoritative either way.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger

	mu      sync.RWMutex
	set     map[Key]struct{}
	total   int
	pending []Key

	flushInterval time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewSQLite opens (creating if necessary) the database at path, loads the
// existing abandoned set into memory, and starts the background flusher.
func NewSQLite(ctx context.Context, path string, opts SQLiteOptions, logger *zap.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	interval := opts.FlushInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s := &SQLite{
		db:            db,
		logger:        logger.Named("store"),
		set:           make(map[Key]struct{}),
		flushInterval: interval,
		stopChan:      make(chan struct{}),
	}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.flusher()

	s.logger.Info("Abandoned-movement store opened",
		zap.String("path", path), zap.Int("entries", len(s.set)), zap.Int("total", s.total))
	return s, nil
}

// load populates the in-memory mirror from the database.
func (s *SQLite) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT x, y, dir FROM abandoned`)
	if err != nil {
		return fmt.Errorf("failed to read abandoned set: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.X, &k.Y, &k.Dir); err != nil {
			return fmt.Errorf("failed to scan abandoned row: %w", err)
		}
		s.set[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate abandoned set: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, totalKey).Scan(&s.total)
	switch {
	case err == sql.ErrNoRows:
		s.total = len(s.set)
	case err != nil:
		return fmt.Errorf("failed to read lifetime counter: %w", err)
	}
	if s.total < len(s.set) {
		s.total = len(s.set)
	}
	return nil
}

func (s *SQLite) Contains(k Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[k]
	return ok
}

func (s *SQLite) Add(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[k]; ok {
		return
	}
	s.set[k] = struct{}{}
	s.total++
	s.pending = append(s.pending, k)
}

func (s *SQLite) All() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.set))
	for k := range s.set {
		keys = append(keys, k)
	}
	return keys
}

func (s *SQLite) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Clear drops everything, durably and in memory.
func (s *SQLite) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM abandoned`); err != nil {
		return fmt.Errorf("failed to clear abandoned set: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, 0)
		 ON CONFLICT(key) DO UPDATE SET value = 0`, totalKey); err != nil {
		return fmt.Errorf("failed to reset lifetime counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	s.set = make(map[Key]struct{})
	s.total = 0
	s.pending = nil
	s.logger.Info("Abandoned-movement store cleared")
	return nil
}

// Close stops the flusher, writes out anything still queued, and closes the
// database. Safe to call more than once.
func (s *SQLite) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	if err := s.flush(context.Background()); err != nil {
		s.logger.Warn("Final flush failed on close", zap.Error(err))
	}
	return s.db.Close()
}

// flusher periodically drains the pending queue to disk until stopped.
func (s *SQLite) flusher() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.flush(context.Background()); err != nil {
				s.logger.Warn("Failed to flush abandoned movements", zap.Error(err))
			}
		case <-s.stopChan:
			return
		}
	}
}

// flush writes the queued additions in a single transaction. On failure the
// batch is put back at the head of the queue for the next attempt.
func (s *SQLite) flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	total := s.total
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	err := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO abandoned (x, y, dir) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, k := range batch {
			if _, err := stmt.ExecContext(ctx, k.X, k.Y, string(k.Dir)); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, totalKey, total); err != nil {
			return err
		}
		return tx.Commit()
	}()
	if err != nil {
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		return err
	}
	return nil
}
