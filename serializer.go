package metaser

import (
	"fmt"
	"reflect"
)

// Serializer turns registered struct values into compact payloads and
// back. Payloads carry no field names or types, only a compact schema id
// resolvable through the shared Store.
type Serializer interface {
	Serialize(value any) ([]byte, error)
	Deserialize(data []byte) (any, error)
}

// FieldConflictFunc observes stored fields dropped during deserialization
// because the current record no longer has a field of that name and type.
// value is the decoded value, or the raw recursive payload for nested
// record fields.
type FieldConflictFunc func(recordName, fieldName, storedType string, value any)

type Options struct {
	// Logf is invoked for schema registration events. Nil means silent.
	Logf func(format string, args ...any)

	// FieldConflict, if set, is called for every stored field dropped on
	// read. Purely observational; dropping is never an error.
	FieldConflict FieldConflictFunc
}

// PersistedSerializer is the Store-backed Serializer implementation.
// Concurrent Serialize and Deserialize calls on distinct values are safe;
// schema registration races resolve through the store counter.
type PersistedSerializer struct {
	store   Store
	types   *TypeRegistry
	schemas *schemaRegistry
	opts    Options
}

var _ Serializer = (*PersistedSerializer)(nil)

// New creates a serializer over the given store. A nil types registry
// gets a fresh one; serialization auto-registers types, deserialization
// requires them registered up front.
func New(store Store, types *TypeRegistry, opts Options) *PersistedSerializer {
	if types == nil {
		types = NewTypeRegistry()
	}
	return &PersistedSerializer{
		store:   store,
		types:   types,
		schemas: newSchemaRegistry(store, opts.Logf),
		opts:    opts,
	}
}

// Types returns the serializer's type registry.
func (s *PersistedSerializer) Types() *TypeRegistry {
	return s.types
}

// Serialize encodes a struct value (or pointer to one) as a compact
// payload, registering its schema in the store on first sight.
func (s *PersistedSerializer) Serialize(value any) ([]byte, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil value", ErrNotStruct)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotStruct, value)
	}
	desc, err := s.types.describe(rv.Type())
	if err != nil {
		return nil, err
	}
	id, err := s.schemas.resolveForWrite(desc.meta())
	if err != nil {
		return nil, err
	}

	var w bitWriter
	w.WriteDynamicNumber(int64(id))
	for i := range desc.fields {
		f := &desc.fields[i]
		if err := s.writeField(&w, f.tag, rv.FieldByIndex(f.index)); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// Deserialize decodes a payload into a pointer to a freshly instantiated
// struct of the record type named by the payload's schema.
//
// Stored fields that no longer exist on the current type, or whose type
// tag changed, are decoded and dropped; fields added since the payload
// was written stay at their zero values.
func (s *PersistedSerializer) Deserialize(data []byte) (any, error) {
	r := newBitReader(data)
	rawID, err := r.ReadDynamicNumber()
	if err != nil {
		return nil, err
	}
	if rawID < 0 {
		return nil, dataErrf(data, 0, nil, "negative schema id %d", rawID)
	}
	m, err := s.schemas.resolveForRead(uint64(rawID))
	if err != nil {
		return nil, err
	}

	typ, ok := s.types.resolve(m.RecordName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecord, m.RecordName)
	}
	desc, err := s.types.describe(typ)
	if err != nil {
		return nil, err
	}

	ptr := reflect.New(typ)
	elem := ptr.Elem()
	for _, f := range m.Fields {
		val, err := s.readValue(r, f.Type)
		if err != nil {
			return nil, err
		}
		cur := desc.field(f.Name)
		if cur != nil && cur.tag == f.Type {
			if err := s.assign(elem.FieldByIndex(cur.index), f.Type, val); err != nil {
				return nil, err
			}
		} else if s.opts.FieldConflict != nil {
			s.opts.FieldConflict(m.RecordName, f.Name, f.Type, val)
		}
	}
	return ptr.Interface(), nil
}
