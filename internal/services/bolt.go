package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// BoltDB keeps the per-installation session identifier of the terminal widget in a BoltDB file.
// Nothing else is persisted.
type BoltDB struct {
	db *bolt.DB
}

// FallbackSessionID is used when no persistent storage is available.
const FallbackSessionID = "user1"

var (
	identityBucket = []byte("identity")
	sessionIDKey   = []byte("uid")
)

// NewBoltDB creates a new BoltDB instance with the specified file path. It initializes the database
// with the identity bucket and returns an error if the database cannot be opened or initialized. The
// database file is created with 0600 permissions if it doesn't exist. Opening fails after a second if
// another process holds the file.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(identityBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return BoltDB{}, fmt.Errorf("failed to create identity bucket: %w", err)
	}

	return BoltDB{db: db}, nil
}

// NewSessionID returns a new random, opaque session identifier.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// SessionID returns the stored session identifier, generating and storing one on first use.
func (b BoltDB) SessionID(context.Context) (string, error) {
	var id string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(identityBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", identityBucket)
		}

		if v := bucket.Get(sessionIDKey); len(v) > 0 {
			id = string(v)
			return nil
		}

		id = NewSessionID()
		return bucket.Put(sessionIDKey, []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve session id: %w", err)
	}
	return id, nil
}

// Close releases the database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}
