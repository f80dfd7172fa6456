/*
Package metaser implements a compact binary serializer that externalizes
per-type schema into a key-value store, keeping payloads free of field
names and type descriptors beyond a single compact integer id.

We implement:

1. A bit-granular wire format: MSB-first bit packing, a variable-length
signed integer ("dynamic number"), length-prefixed UTF-8 strings, and
byte-aligned 64-bit primitives.

2. A schema registry that fingerprints record definitions with SHA-1,
assigns each distinct schema a compact id through the store's counter,
and recovers schemas from ids when reading.

3. An evolution-tolerant reader: stored fields are matched to the current
struct definition by name and type tag; removed or retyped fields are
decoded and dropped, new fields stay at their zero values.

# Technical Details

**Store layout.** Two kinds of entries share one key namespace:
"{name}/{hex sha1}" maps to the encoded schema, and the decimal string of
a compact id maps to such a key. Schema entries are immutable once
written.

**Payload**: dynamic number of the compact id, then field values in the
schema's field order. No magic number, no length prefix; the payload is
consumed in lockstep with the schema fetched from the store.

**Nesting**: a nested record field serializes to a complete payload of
its own, framed as a byte array inside the outer stream.

**Concurrency**: two processes first registering the same type may both
allocate ids; both mappings land in the store and every reader resolves
either one. Schemas being immutable makes the duplicate puts benign.
*/
package metaser
