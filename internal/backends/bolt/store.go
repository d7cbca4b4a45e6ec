// Package bolt keeps durable records in an embedded bbolt database: a single
// file like the plain-file backend, but with transactional reads and writes.
package bolt

import (
	"confetch/internal/types"
	"context"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("confetch")

type Store struct {
	db *bolt.DB
}

func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, types.Err(types.ErrDurableStore, err, "opening bolt db %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, types.Err(types.ErrDurableStore, err, "creating bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context, key string) (types.CachedRecord, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return types.ErrNotFound
		}
		// Copy out: bbolt values are only valid inside the transaction.
		raw = make([]byte, len(v))
		copy(raw, v)
		return nil
	})
	if err != nil {
		if err == types.ErrNotFound {
			return types.CachedRecord{}, err
		}
		return types.CachedRecord{}, types.Err(types.ErrDurableStore, err, "reading record %s", key)
	}
	var rec types.CachedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.CachedRecord{}, types.Err(types.ErrDurableStore, err, "decoding record %s", key)
	}
	return rec, nil
}

func (s *Store) Store(ctx context.Context, key string, rec types.CachedRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return types.Err(types.ErrDurableStore, err, "encoding record %s", key)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), raw)
	})
	if err != nil {
		return types.Err(types.ErrDurableStore, err, "writing record %s", key)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
