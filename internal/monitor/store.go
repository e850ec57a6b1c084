package monitor

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
	// storeDirPerm is the permission mode for the snapshot directory.
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the snapshot database.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt
	// database lock.
	storeOpenTimeout = 5 * time.Second
)

var (
	snapshotsBucket = []byte("snapshots")
	appBucket       = []byte("app")
	latestKey       = []byte("latest")
)

// Store persists snapshots in a local bolt database: every capture
// under its timestamp, plus a "latest" pointer for comparisons.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (creating if needed) the snapshot database.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(snapshotsBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(appBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snapshot db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records a snapshot under its timestamp and as the latest.
func (s *Store) Save(snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	key := []byte(snap.Timestamp.UTC().Format(time.RFC3339Nano))

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(snapshotsBucket).Put(key, payload); err != nil {
			return err
		}

		return tx.Bucket(appBucket).Put(latestKey, payload)
	})
}

// Latest returns the most recently saved snapshot, or nil when none
// has been saved yet.
func (s *Store) Latest() (*Snapshot, error) {
	var payload []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(appBucket).Get(latestKey); v != nil {
			payload = append([]byte(nil), v...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if payload == nil {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decoding latest snapshot: %w", err)
	}

	return &snap, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count() (int, error) {
	var n int

	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(snapshotsBucket).Stats().KeyN
		return nil
	})

	return n, err
}
