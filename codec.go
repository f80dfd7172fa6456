package metaser

import (
	"math"
	"reflect"
	"time"
)

// The codec dispatches on the declared wire tag of a field, never on the
// runtime type of the value. Primitive tags encode bare; everything else
// carries a leading null bit (1 = null) followed by the object branch.

func (s *PersistedSerializer) writeField(w *bitWriter, tag string, v reflect.Value) error {
	switch tag {
	case tagBool:
		w.WriteBit(v.Bool())
		return nil
	case tagInt8, tagInt16, tagInt32:
		w.WriteDynamicNumber(v.Int())
		return nil
	case tagInt64:
		w.WriteUint64(uint64(v.Int()))
		return nil
	case tagFloat32:
		w.WriteUint32(math.Float32bits(float32(v.Float())))
		return nil
	case tagFloat64:
		w.WriteUint64(math.Float64bits(v.Float()))
		return nil
	}

	null := false
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			null = true
		} else {
			v = v.Elem()
		}
	case reflect.Slice:
		null = v.IsNil()
	}
	w.WriteBit(null)
	if null {
		return nil
	}
	return s.writeObject(w, tag, v)
}

func (s *PersistedSerializer) writeObject(w *bitWriter, tag string, v reflect.Value) error {
	if isNullableTag(tag) {
		switch elemTag(tag) {
		case tagBool:
			w.WriteBit(v.Bool())
		case tagInt8, tagInt16, tagInt32:
			w.WriteDynamicNumber(v.Int())
		case tagInt64:
			w.WriteUint64(uint64(v.Int()))
		case tagFloat32:
			w.WriteUint32(math.Float32bits(float32(v.Float())))
		case tagFloat64:
			w.WriteUint64(math.Float64bits(v.Float()))
		}
		return nil
	}
	if isArrayTag(tag) {
		return s.writeArray(w, elemTag(tag), v)
	}
	switch tag {
	case tagString:
		w.WriteUTF(v.String())
		return nil
	case tagInstant:
		t := v.Interface().(time.Time)
		w.WriteUint64(uint64(t.UnixMilli()))
		return nil
	case tagDecimal:
		d := v.Interface().(Decimal)
		writeByteArray(w, bigIntBytes(d.unscaledOrZero()))
		w.WriteDynamicNumber(int64(d.Scale))
		return nil
	}
	// nested record: recursive payload framed as a byte array
	frame, err := s.Serialize(v.Interface())
	if err != nil {
		return err
	}
	writeByteArray(w, frame)
	return nil
}

func (s *PersistedSerializer) writeArray(w *bitWriter, elem string, v reflect.Value) error {
	n := v.Len()
	w.WriteDynamicNumber(int64(n))
	switch elem {
	case tagBool:
		for i := 0; i < n; i++ {
			w.WriteBit(v.Index(i).Bool())
		}
	case tagInt8:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			for i := 0; i < n; i++ {
				w.WriteDynamicNumber(int64(int8(v.Index(i).Uint())))
			}
		} else {
			for i := 0; i < n; i++ {
				w.WriteDynamicNumber(v.Index(i).Int())
			}
		}
	case tagInt16, tagInt32:
		for i := 0; i < n; i++ {
			w.WriteDynamicNumber(v.Index(i).Int())
		}
	case tagInt64:
		for i := 0; i < n; i++ {
			w.WriteUint64(uint64(v.Index(i).Int()))
		}
	case tagFloat32:
		for i := 0; i < n; i++ {
			w.WriteUint32(math.Float32bits(float32(v.Index(i).Float())))
		}
	case tagFloat64:
		for i := 0; i < n; i++ {
			w.WriteUint64(math.Float64bits(v.Index(i).Float()))
		}
	}
	return nil
}

// writeByteArray emits the i8[] framing: a dynamic-number count followed
// by one dynamic number per byte, each reinterpreted as a signed int8.
func writeByteArray(w *bitWriter, b []byte) {
	w.WriteDynamicNumber(int64(len(b)))
	for _, c := range b {
		w.WriteDynamicNumber(int64(int8(c)))
	}
}

func readByteArray(r *bitReader) ([]byte, error) {
	n, err := r.ReadCount(7)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	for i := range buf {
		v, err := readRangedInt(r, tagInt8)
		if err != nil {
			return nil, err
		}
		buf[i] = byte(int8(v))
	}
	return buf, nil
}

// rawRecord is the undecoded recursive payload of a nested record field.
type rawRecord []byte

// readValue decodes one value by its stored wire tag. Nulls come back as
// a nil any; nested records come back as a rawRecord frame that the
// caller deserializes only if the target field still wants it.
func (s *PersistedSerializer) readValue(r *bitReader, tag string) (any, error) {
	switch tag {
	case tagBool:
		return r.ReadBit()
	case tagInt8, tagInt16, tagInt32:
		return readRangedInt(r, tag)
	case tagInt64:
		u, err := r.ReadUint64()
		return int64(u), err
	case tagFloat32:
		u, err := r.ReadUint32()
		return math.Float32frombits(u), err
	case tagFloat64:
		u, err := r.ReadUint64()
		return math.Float64frombits(u), err
	}

	null, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	if null {
		return nil, nil
	}
	return s.readObject(r, tag)
}

func (s *PersistedSerializer) readObject(r *bitReader, tag string) (any, error) {
	if isNullableTag(tag) {
		switch elemTag(tag) {
		case tagBool:
			return r.ReadBit()
		case tagInt8, tagInt16, tagInt32:
			return readRangedInt(r, elemTag(tag))
		case tagInt64:
			u, err := r.ReadUint64()
			return int64(u), err
		case tagFloat32:
			u, err := r.ReadUint32()
			return math.Float32frombits(u), err
		case tagFloat64:
			u, err := r.ReadUint64()
			return math.Float64frombits(u), err
		}
		return nil, dataErrf(r.orig, r.Off(), nil, "unknown nullable tag %q", tag)
	}
	if isArrayTag(tag) {
		return s.readArray(r, elemTag(tag))
	}
	switch tag {
	case tagString:
		return r.ReadUTF()
	case tagInstant:
		u, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(int64(u)).UTC(), nil
	case tagDecimal:
		unscaled, err := readByteArray(r)
		if err != nil {
			return nil, err
		}
		scale, err := r.ReadDynamicNumber()
		if err != nil {
			return nil, err
		}
		if scale < math.MinInt32 || scale > math.MaxInt32 {
			return nil, dataErrf(r.orig, r.Off(), nil, "decimal scale %d out of range", scale)
		}
		return Decimal{Unscaled: bigIntFromBytes(unscaled), Scale: int32(scale)}, nil
	}
	frame, err := readByteArray(r)
	if err != nil {
		return nil, err
	}
	return rawRecord(frame), nil
}

func (s *PersistedSerializer) readArray(r *bitReader, elem string) (any, error) {
	switch elem {
	case tagBool:
		n, err := r.ReadCount(1)
		if err != nil {
			return nil, err
		}
		out := make([]bool, n)
		for i := range out {
			if out[i], err = r.ReadBit(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case tagInt8, tagInt16, tagInt32:
		n, err := r.ReadCount(7)
		if err != nil {
			return nil, err
		}
		out := make([]int64, n)
		for i := range out {
			if out[i], err = readRangedInt(r, elem); err != nil {
				return nil, err
			}
		}
		return out, nil
	case tagInt64:
		n, err := r.ReadCount(64)
		if err != nil {
			return nil, err
		}
		out := make([]int64, n)
		for i := range out {
			u, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			out[i] = int64(u)
		}
		return out, nil
	case tagFloat32:
		n, err := r.ReadCount(32)
		if err != nil {
			return nil, err
		}
		out := make([]float32, n)
		for i := range out {
			u, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			out[i] = math.Float32frombits(u)
		}
		return out, nil
	case tagFloat64:
		n, err := r.ReadCount(64)
		if err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i := range out {
			u, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			out[i] = math.Float64frombits(u)
		}
		return out, nil
	}
	return nil, dataErrf(r.orig, r.Off(), nil, "unknown array element tag %q", elem)
}

var intTagRanges = map[string][2]int64{
	tagInt8:  {math.MinInt8, math.MaxInt8},
	tagInt16: {math.MinInt16, math.MaxInt16},
	tagInt32: {math.MinInt32, math.MaxInt32},
}

func readRangedInt(r *bitReader, tag string) (int64, error) {
	off := r.Off()
	v, err := r.ReadDynamicNumber()
	if err != nil {
		return 0, err
	}
	rng := intTagRanges[tag]
	if v < rng[0] || v > rng[1] {
		return 0, dataErrf(r.orig, off, nil, "value %d out of range for %s", v, tag)
	}
	return v, nil
}

// assign stores a decoded value into a current field whose tag matched
// the stored tag. A nil value leaves the field at its zero value.
func (s *PersistedSerializer) assign(fv reflect.Value, tag string, val any) error {
	if val == nil {
		return nil
	}
	if frame, ok := val.(rawRecord); ok {
		return s.assignRecord(fv, frame)
	}
	return assignScalar(fv, func(dst reflect.Value) error {
		switch v := val.(type) {
		case bool:
			dst.SetBool(v)
		case int64:
			dst.SetInt(v)
		case float32:
			dst.SetFloat(float64(v))
		case float64:
			dst.SetFloat(v)
		case string:
			dst.SetString(v)
		case time.Time:
			dst.Set(reflect.ValueOf(v))
		case Decimal:
			dst.Set(reflect.ValueOf(v))
		case []bool:
			out := reflect.MakeSlice(dst.Type(), len(v), len(v))
			for i, b := range v {
				out.Index(i).SetBool(b)
			}
			dst.Set(out)
		case []int64:
			out := reflect.MakeSlice(dst.Type(), len(v), len(v))
			if dst.Type().Elem().Kind() == reflect.Uint8 {
				for i, x := range v {
					out.Index(i).SetUint(uint64(byte(int8(x))))
				}
			} else {
				for i, x := range v {
					out.Index(i).SetInt(x)
				}
			}
			dst.Set(out)
		case []float32:
			out := reflect.MakeSlice(dst.Type(), len(v), len(v))
			for i, x := range v {
				out.Index(i).SetFloat(float64(x))
			}
			dst.Set(out)
		case []float64:
			out := reflect.MakeSlice(dst.Type(), len(v), len(v))
			for i, x := range v {
				out.Index(i).SetFloat(x)
			}
			dst.Set(out)
		}
		return nil
	})
}

func (s *PersistedSerializer) assignRecord(fv reflect.Value, frame rawRecord) error {
	sub, err := s.Deserialize([]byte(frame))
	if err != nil {
		return err
	}
	subv := reflect.ValueOf(sub)
	if fv.Kind() == reflect.Pointer {
		if subv.Type() == fv.Type() {
			fv.Set(subv)
		}
	} else if subv.Type().Elem() == fv.Type() {
		fv.Set(subv.Elem())
	}
	return nil
}

// assignScalar routes an assignment through a fresh allocation when the
// target field is a pointer.
func assignScalar(fv reflect.Value, set func(reflect.Value) error) error {
	if fv.Kind() == reflect.Pointer {
		p := reflect.New(fv.Type().Elem())
		if err := set(p.Elem()); err != nil {
			return err
		}
		fv.Set(p)
		return nil
	}
	return set(fv)
}
