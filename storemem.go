package metaser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// MemStore is a transient in-memory Store for tests and single-process
// deployments. Use Snapshot and Restore to carry its contents across
// process restarts.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	next    atomic.Uint64
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string][]byte)}
}

func (s *MemStore) Put(key string, data []byte) error {
	data = slices.Clone(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = data
	return nil
}

func (s *MemStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return slices.Clone(v), nil
}

func (s *MemStore) NextID() (uint64, error) {
	return s.next.Add(1) - 1, nil
}

// Len returns the number of stored entries.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type memSnapshot struct {
	Next    uint64            `msgpack:"next"`
	Entries map[string][]byte `msgpack:"entries"`
}

// Snapshot encodes the entire store (entries and counter) into a portable
// blob with an integrity checksum header.
func (s *MemStore) Snapshot() ([]byte, error) {
	snap := memSnapshot{Next: s.next.Load()}
	s.mu.RLock()
	snap.Entries = make(map[string][]byte, len(s.entries))
	for k, v := range s.entries {
		snap.Entries[k] = slices.Clone(v)
	}
	s.mu.RUnlock()

	keys := make([]string, 0, len(snap.Entries))
	for k := range snap.Entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	// The body is written in memSnapshot's map layout by hand so that
	// entries appear in sorted key order: msgpack's SetSortMapKeys does not
	// cover map[string][]byte.
	var body bytes.Buffer
	enc := msgpack.NewEncoder(&body)
	err := errors.Join(enc.EncodeMapLen(2), enc.EncodeString("next"), enc.EncodeUint(snap.Next), enc.EncodeString("entries"), enc.EncodeMapLen(len(keys)))
	for _, k := range keys {
		err = errors.Join(err, enc.EncodeString(k), enc.EncodeBytes(snap.Entries[k]))
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+body.Len())
	binary.BigEndian.PutUint64(out, xxhash.Sum64(body.Bytes()))
	copy(out[8:], body.Bytes())
	return out, nil
}

// Restore replaces the store contents with a snapshot previously produced
// by Snapshot. Truncated or corrupted snapshots are rejected.
func (s *MemStore) Restore(data []byte) error {
	if len(data) < 8 {
		return dataErrf(data, 0, ErrCorruptStore, "snapshot truncated")
	}
	want := binary.BigEndian.Uint64(data)
	body := data[8:]
	if got := xxhash.Sum64(body); got != want {
		return dataErrf(data, 0, ErrCorruptStore, "snapshot checksum mismatch: %016x != %016x", got, want)
	}
	var snap memSnapshot
	if err := msgpack.Unmarshal(body, &snap); err != nil {
		return dataErrf(data, 8, ErrCorruptStore, "snapshot body: %v", err)
	}
	entries := make(map[string][]byte, len(snap.Entries))
	for k, v := range snap.Entries {
		entries[k] = slices.Clone(v)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	s.next.Store(snap.Next)
	return nil
}
