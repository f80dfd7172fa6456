package metaser

import (
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"
)

func TestBoltStoreBasics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.db")
	s := must(OpenBoltStore(path, nil))
	defer s.Close()

	v := must(s.Get("missing"))
	if v != nil {
		t.Errorf("** Get(missing) = %v, wanted nil", v)
	}

	ensure(s.Put("k", []byte("abc")))
	if got := must(s.Get("k")); string(got) != "abc" {
		t.Errorf("** Get(k) = %q", got)
	}

	first := must(s.NextID())
	second := must(s.NextID())
	if first != 1 || second != 2 {
		t.Errorf("** NextID() = %d, %d, wanted 1, 2", first, second)
	}
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.db")

	s := must(OpenBoltStore(path, nil))
	ensure(s.Put("k", []byte("persisted")))
	last := must(s.NextID())
	ensure(s.Close())

	s2 := must(OpenBoltStore(path, nil))
	defer s2.Close()
	if got := must(s2.Get("k")); string(got) != "persisted" {
		t.Errorf("** reopened Get(k) = %q", got)
	}
	if id := must(s2.NextID()); id <= last {
		t.Errorf("** counter went backwards after reopen: %d <= %d", id, last)
	}
}

func TestBoltStoreWrappedHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.db")
	db := must(bbolt.Open(path, 0o666, nil))
	defer db.Close()

	s := must(NewBoltStore(db))
	ensure(s.Put("k", []byte("v")))
	if got := must(s.Get("k")); string(got) != "v" {
		t.Errorf("** Get(k) = %q", got)
	}

	// Close on a wrapped handle leaves the caller's DB open.
	ensure(s.Close())
	ensure(s.Put("k2", []byte("v2")))
}
