package metaser

import (
	"math/big"
	"strings"
)

// Canonical wire type tags. Nullable variants append '?', array variants
// append "[]". Any other tag is a record name.
const (
	tagBool    = "bool"
	tagInt8    = "i8"
	tagInt16   = "i16"
	tagInt32   = "i32"
	tagInt64   = "i64"
	tagFloat32 = "f32"
	tagFloat64 = "f64"
	tagString  = "string"
	tagInstant = "instant"
	tagDecimal = "decimal"
)

func isNullableTag(tag string) bool { return strings.HasSuffix(tag, "?") }
func isArrayTag(tag string) bool    { return strings.HasSuffix(tag, "[]") }

// elemTag strips the nullable or array suffix off a primitive tag.
func elemTag(tag string) string {
	if isNullableTag(tag) {
		return tag[:len(tag)-1]
	}
	if isArrayTag(tag) {
		return tag[:len(tag)-2]
	}
	return tag
}

func isPrimitiveTag(tag string) bool {
	switch tag {
	case tagBool, tagInt8, tagInt16, tagInt32, tagInt64, tagFloat32, tagFloat64:
		return true
	}
	return false
}

// isRecordTag reports whether tag names a registered record rather than a
// built-in wire type.
func isRecordTag(tag string) bool {
	if isNullableTag(tag) || isArrayTag(tag) {
		return false
	}
	switch tag {
	case tagString, tagInstant, tagDecimal:
		return false
	}
	return !isPrimitiveTag(tag)
}

// Decimal is an arbitrary-precision decimal value: Unscaled * 10^-Scale.
// The zero value means 0 with scale 0. A nil Unscaled is treated as 0.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

func (d Decimal) unscaledOrZero() *big.Int {
	if d.Unscaled == nil {
		return new(big.Int)
	}
	return d.Unscaled
}

func (d Decimal) Equal(other Decimal) bool {
	return d.Scale == other.Scale && d.unscaledOrZero().Cmp(other.unscaledOrZero()) == 0
}

// bigIntBytes returns the minimal big-endian two's-complement encoding of
// x, always at least one byte.
func bigIntBytes(x *big.Int) []byte {
	if x.Sign() >= 0 {
		buf := make([]byte, x.BitLen()/8+1)
		x.FillBytes(buf)
		return buf
	}
	abs := new(big.Int).Abs(x)
	bitLen := abs.BitLen()
	if abs.TrailingZeroBits() == uint(bitLen-1) {
		bitLen-- // negative exact power of two fits one bit tighter
	}
	n := bitLen/8 + 1
	t := new(big.Int).Lsh(big.NewInt(1), uint(8*n))
	t.Add(t, x)
	buf := make([]byte, n)
	t.FillBytes(buf)
	return buf
}

// bigIntFromBytes decodes a big-endian two's-complement value.
func bigIntFromBytes(b []byte) *big.Int {
	x := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		t := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		x.Sub(x, t)
	}
	return x
}
