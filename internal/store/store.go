// Package store persists exported sync engine state across restarts, the
// way a long-poll client needs to in order to resume a connection rather
// than replaying a full initial sync.
package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	stateDirPerm  = fs.FileMode(0o700)
	stateFilePerm = fs.FileMode(0o600)
	openTimeout   = 5 * time.Second
)

var sessionsBucket = []byte("sessions")

// Store wraps a bbolt database holding one JSON-encoded snapshot per
// connection id.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store db: %w", err)
	}

	return &Store{db: db}, nil
}

// DefaultPath returns ~/.syncclient/state.db, the CLI demo's default
// location for the store.
func DefaultPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(dir, ".syncclient", "state.db"), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a raw JSON snapshot under connID, overwriting any previous
// snapshot for that connection.
func (s *Store) Save(connID string, snapshot json.RawMessage) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(connID), snapshot)
	})
}

// Load returns the raw JSON snapshot previously saved for connID, or nil if
// none exists.
func (s *Store) Load(connID string) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(sessionsBucket).Get([]byte(connID))
		if v == nil {
			return nil
		}
		out = append(json.RawMessage(nil), v...)
		return nil
	})
	return out, err
}

// Delete removes any snapshot stored for connID.
func (s *Store) Delete(connID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(connID))
	})
}
