// Package store persists lifecycle identifiers (cluster id, per-dataset index
// ids) so a restarted session resumes polling where it left off.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/abelbrown/forager/internal/lifecycle"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clusters (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		cluster_id TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dataset_indexes (
		dataset TEXT PRIMARY KEY,
		index_id TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveClusterID records the active cluster, replacing any previous one.
func (s *Store) SaveClusterID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO clusters (slot, cluster_id, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET cluster_id = excluded.cluster_id, saved_at = excluded.saved_at
	`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save cluster id: %w", err)
	}
	return nil
}

// ClusterID returns the saved cluster id, or "" when none is saved.
func (s *Store) ClusterID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRow(`SELECT cluster_id FROM clusters WHERE slot = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load cluster id: %w", err)
	}
	return id, nil
}

// ClearClusterID forgets the saved cluster.
func (s *Store) ClearClusterID() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM clusters`); err != nil {
		return fmt.Errorf("clear cluster id: %w", err)
	}
	return nil
}

// SaveIndexID records the index built for dataset, replacing any previous one.
func (s *Store) SaveIndexID(dataset, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO dataset_indexes (dataset, index_id, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(dataset) DO UPDATE SET index_id = excluded.index_id, saved_at = excluded.saved_at
	`, dataset, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save index id for %s: %w", dataset, err)
	}
	return nil
}

// IndexIDs returns every saved dataset → index id pair.
func (s *Store) IndexIDs() (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT dataset, index_id FROM dataset_indexes ORDER BY dataset`)
	if err != nil {
		return nil, fmt.Errorf("load index ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var dataset, id string
		if err := rows.Scan(&dataset, &id); err != nil {
			return nil, fmt.Errorf("scan index id: %w", err)
		}
		out[dataset] = id
	}
	return out, rows.Err()
}

// RestoreActions returns the lifecycle actions that rebuild the saved ids in
// a fresh state. Statuses are left for the poller to fill in.
func (s *Store) RestoreActions() ([]lifecycle.Action, error) {
	clusterID, err := s.ClusterID()
	if err != nil {
		return nil, err
	}
	indexes, err := s.IndexIDs()
	if err != nil {
		return nil, err
	}

	var actions []lifecycle.Action
	if clusterID != "" {
		actions = append(actions, lifecycle.SetClusterID{ClusterID: clusterID})
	}
	for _, dataset := range sortedKeys(indexes) {
		actions = append(actions, lifecycle.SetIndexID{Dataset: dataset, IndexID: indexes[dataset]})
	}
	return actions, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
