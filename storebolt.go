package metaser

import (
	"slices"

	"go.etcd.io/bbolt"
)

var boltSchemaBucket = []byte("metaser")

// BoltStore persists schema mappings in a bbolt database. All entries live
// in a single bucket; the id counter uses the bucket sequence.
type BoltStore struct {
	db    *bbolt.DB
	owned bool
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens (creating if necessary) a bbolt database at path and
// wraps it as a Store. The returned store owns the handle; Close releases
// the file.
func OpenBoltStore(path string, opts *bbolt.Options) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o666, opts)
	if err != nil {
		return nil, err
	}
	s := &BoltStore{db: db, owned: true}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewBoltStore wraps an existing bbolt handle. The caller keeps ownership
// of the handle; Close is a no-op.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	s := &BoltStore{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) init() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltSchemaBucket)
		return err
	})
}

func (s *BoltStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) Put(key string, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltSchemaBucket).Put([]byte(key), data)
	})
}

func (s *BoltStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltSchemaBucket).Get([]byte(key))
		if v != nil {
			value = slices.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *BoltStore) NextID() (uint64, error) {
	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		id, err = tx.Bucket(boltSchemaBucket).NextSequence()
		return err
	})
	return id, err
}
