package metaser

import (
	"strconv"
	"sync"
)

// schemaRegistry resolves schemas to compact ids and back through the
// Store. Two kinds of entries live in the store:
//
//	"{name}/{hex fingerprint}" -> encoded RecordMeta
//	"{compact id decimal}"     -> schema key bytes
//
// Schema keys always contain a '/', so decimal id keys never collide with
// them. Both caches grow without bound; the schema universe of a
// deployment is expected to be small.
type schemaRegistry struct {
	store    Store
	idsByKey sync.Map // string -> uint64
	metaByID sync.Map // uint64 -> *RecordMeta
	logf     func(format string, args ...any)
}

func newSchemaRegistry(store Store, logf func(format string, args ...any)) *schemaRegistry {
	return &schemaRegistry{store: store, logf: logf}
}

func (r *schemaRegistry) log(format string, args ...any) {
	if r.logf != nil {
		r.logf(format, args...)
	}
}

func idKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// resolveForWrite returns the compact id to stamp on payloads of the given
// schema, registering the schema in the store on first use.
//
// When the schema already exists in the store but this process has no id
// cached for it, a fresh id is allocated and an additional reverse mapping
// stored. Multiple ids may therefore point at the same schema; readers
// handle all of them.
func (r *schemaRegistry) resolveForWrite(m *RecordMeta) (uint64, error) {
	key := m.Key()
	if v, ok := r.idsByKey.Load(key); ok {
		return v.(uint64), nil
	}

	existing, err := r.store.Get(key)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		if err := r.store.Put(key, m.AppendBinary(nil)); err != nil {
			return 0, err
		}
	} else {
		stored, err := ParseRecordMeta(existing)
		if err != nil {
			return 0, err
		}
		if stored.Key() != key {
			return 0, dataErrf(existing, 0, ErrCorruptStore, "schema under key %q hashes to %q", key, stored.Key())
		}
	}

	id, err := r.store.NextID()
	if err != nil {
		return 0, err
	}
	if err := r.store.Put(idKey(id), []byte(key)); err != nil {
		return 0, err
	}
	r.log("metaser: schema %s assigned id %d", key, id)

	if actual, loaded := r.idsByKey.LoadOrStore(key, id); loaded {
		id = actual.(uint64)
	}
	r.metaByID.Store(id, m)
	return id, nil
}

// resolveForRead recovers the schema a payload's compact id refers to.
func (r *schemaRegistry) resolveForRead(id uint64) (*RecordMeta, error) {
	if v, ok := r.metaByID.Load(id); ok {
		return v.(*RecordMeta), nil
	}

	keyBytes, err := r.store.Get(idKey(id))
	if err != nil {
		return nil, err
	}
	if keyBytes == nil {
		return nil, ErrUnknownCompactID
	}
	key := string(keyBytes)

	enc, err := r.store.Get(key)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, dataErrf(keyBytes, 0, ErrCorruptStore, "id %d maps to missing schema key %q", id, key)
	}
	m, err := ParseRecordMeta(enc)
	if err != nil {
		return nil, err
	}
	if m.Key() != key {
		return nil, dataErrf(enc, 0, ErrCorruptStore, "schema under key %q hashes to %q", key, m.Key())
	}

	actual, _ := r.metaByID.LoadOrStore(id, m)
	r.idsByKey.LoadOrStore(key, id)
	return actual.(*RecordMeta), nil
}
