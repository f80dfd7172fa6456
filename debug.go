package metaser

import (
	"fmt"
	"strings"
)

var dumpSep = strings.Repeat("-", 60)

// DumpSchemas renders a human-readable listing of the schemas registered
// in the store, probing compact ids 0 through maxID inclusive and walking
// each reverse mapping to its schema. Ids without a mapping are skipped;
// multiple ids may print the same schema.
func DumpSchemas(store Store, maxID uint64) (string, error) {
	var buf strings.Builder
	var printed int
	for id := uint64(0); id <= maxID; id++ {
		keyBytes, err := store.Get(idKey(id))
		if err != nil {
			return "", err
		}
		if keyBytes == nil {
			continue
		}
		key := string(keyBytes)
		enc, err := store.Get(key)
		if err != nil {
			return "", err
		}
		if printed > 0 {
			fmt.Fprintln(&buf, dumpSep)
		}
		printed++
		if enc == nil {
			fmt.Fprintf(&buf, "%d => %s ** ERROR: schema missing\n", id, key)
			continue
		}
		m, err := ParseRecordMeta(enc)
		if err != nil {
			fmt.Fprintf(&buf, "%d => %s ** ERROR: %v\n", id, key, err)
			continue
		}
		fmt.Fprintf(&buf, "%d => %s\n", id, key)
		fmt.Fprintf(&buf, "  %s (%d fields)\n", m.RecordName, len(m.Fields))
		for _, f := range m.Fields {
			fmt.Fprintf(&buf, "    %s %s\n", rpad(f.Name, 24, ' '), f.Type)
		}
	}
	return buf.String(), nil
}
