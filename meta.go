package metaser

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// FieldInfo describes a single serialized field: its name and its wire
// type tag.
type FieldInfo struct {
	Name string
	Type string
}

// RecordMeta is the stored schema of a record type: the record name plus
// the ordered field list. Field order is the authoritative serialization
// order for that schema version.
type RecordMeta struct {
	RecordName string
	Fields     []FieldInfo
}

// Fingerprint hashes the canonical field list. Two versions of a record
// with the same fields and types share a fingerprint regardless of the
// record name.
func (m *RecordMeta) Fingerprint() [sha1.Size]byte {
	h := sha1.New()
	for _, f := range m.Fields {
		h.Write([]byte(f.Name))
		h.Write([]byte{0})
		h.Write([]byte(f.Type))
		h.Write([]byte{0})
	}
	var sum [sha1.Size]byte
	h.Sum(sum[:0])
	return sum
}

// Key returns the store key identifying this exact schema:
// "{record name}/{hex fingerprint}".
func (m *RecordMeta) Key() string {
	sum := m.Fingerprint()
	return m.RecordName + "/" + hex.EncodeToString(sum[:])
}

// AppendBinary appends the schema's store encoding to buf. The encoding
// is a fresh bit stream with the same packing rules as payloads: record
// name, field count as a dynamic number, then name/type string pairs.
func (m *RecordMeta) AppendBinary(buf []byte) []byte {
	w := bitWriter{buf: buf}
	w.WriteUTF(m.RecordName)
	w.WriteDynamicNumber(int64(len(m.Fields)))
	for _, f := range m.Fields {
		w.WriteUTF(f.Name)
		w.WriteUTF(f.Type)
	}
	return w.Bytes()
}

// ParseRecordMeta decodes a schema previously encoded by AppendBinary.
func ParseRecordMeta(data []byte) (*RecordMeta, error) {
	r := newBitReader(data)
	name, err := r.ReadUTF()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadCount(0)
	if err != nil {
		return nil, err
	}
	if n > len(data) {
		return nil, dataErrf(data, r.Off(), ErrCorruptStore, "implausible field count %d", n)
	}
	m := &RecordMeta{RecordName: name, Fields: make([]FieldInfo, 0, n)}
	for i := 0; i < n; i++ {
		fname, err := r.ReadUTF()
		if err != nil {
			return nil, err
		}
		ftype, err := r.ReadUTF()
		if err != nil {
			return nil, err
		}
		m.Fields = append(m.Fields, FieldInfo{Name: fname, Type: ftype})
	}
	if r.RemainingBits() >= 8 {
		return nil, dataErrf(data, r.Off(), ErrCorruptStore, "trailing garbage after schema")
	}
	return m, nil
}

func (m *RecordMeta) String() string {
	return fmt.Sprintf("%s(%d fields)", m.RecordName, len(m.Fields))
}
