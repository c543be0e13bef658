package store

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Persisted UI state keys. Only the dashboard path writes these; the widget
// keeps its session strictly in memory.
const (
	KeySessionID      = "session_id"
	KeyAuthToken      = "auth_token"
	KeyOrganizationID = "organization_id"
)

var stateBucket = []byte("ui_state")

// StateFile is the durable client-side key-value state, one BoltDB file.
// The database is opened per operation so multiple commands can share it.
type StateFile struct {
	path string
}

// NewStateFile points at (and lazily creates) the state database at path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// DefaultStatePath places the state database under the user config dir.
func DefaultStatePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "supportkit", "state.db"), nil
}

// Get returns the stored value for key, or "" when absent.
func (f *StateFile) Get(key string) (string, error) {
	db, err := f.open()
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	var value string
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = string(v)
		}
		return nil
	})
	return value, err
}

// Put stores value under key.
func (f *StateFile) Put(key, value string) error {
	db, err := f.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(stateBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// Delete removes key. Missing keys are not an error.
func (f *StateFile) Delete(key string) error {
	db, err := f.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (f *StateFile) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return nil, err
	}
	return bolt.Open(f.path, 0o600, &bolt.Options{Timeout: time.Second})
}
