package metaser

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type descSample struct {
	Beta    int32
	Alpha   string
	Gamma   *float64
	Skipped string `metaser:"-"`
	Renamed bool   `metaser:"flag"`
	hidden  int
}

type descNested struct {
	Child descSample
}

func TestDescribeFieldOrderAndTags(t *testing.T) {
	reg := NewTypeRegistry()
	ensure(reg.RegisterAs("test.Sample", descSample{}))

	desc, err := reg.describe(reflect.TypeOf(descSample{}))
	if err != nil {
		t.Fatal(err)
	}
	want := []FieldInfo{
		{"Alpha", "string"},
		{"Beta", "i32"},
		{"Gamma", "f64?"},
		{"flag", "bool"},
	}
	got := desc.meta().Fields
	if !reflect.DeepEqual(got, want) {
		t.Errorf("** fields = %v, wanted %v", got, want)
	}
	if desc.name != "test.Sample" {
		t.Errorf("** name = %q", desc.name)
	}
}

func TestTypeTagMapping(t *testing.T) {
	reg := NewTypeRegistry()
	tests := []struct {
		sample   any
		expected string
	}{
		{bool(false), "bool"},
		{int8(0), "i8"},
		{int16(0), "i16"},
		{int32(0), "i32"},
		{int64(0), "i64"},
		{int(0), "i64"},
		{float32(0), "f32"},
		{float64(0), "f64"},
		{(*bool)(nil), "bool?"},
		{(*int)(nil), "i64?"},
		{"", "string"},
		{(*string)(nil), "string"},
		{time.Time{}, "instant"},
		{(*time.Time)(nil), "instant"},
		{Decimal{}, "decimal"},
		{(*Decimal)(nil), "decimal"},
		{[]bool(nil), "bool[]"},
		{[]byte(nil), "i8[]"},
		{[]int8(nil), "i8[]"},
		{[]int16(nil), "i16[]"},
		{[]int32(nil), "i32[]"},
		{[]int64(nil), "i64[]"},
		{[]int(nil), "i64[]"},
		{[]float32(nil), "f32[]"},
		{[]float64(nil), "f64[]"},
	}
	for _, test := range tests {
		tag, err := reg.typeTagOf(reflect.TypeOf(test.sample))
		if err != nil {
			t.Errorf("** typeTagOf(%T) failed: %v", test.sample, err)
		} else if tag != test.expected {
			t.Errorf("** typeTagOf(%T) = %q, wanted %q", test.sample, tag, test.expected)
		}
	}
}

func TestTypeTagUnsupported(t *testing.T) {
	reg := NewTypeRegistry()
	samples := []any{
		uint(0), uint16(0), uint32(0), uint64(0),
		map[string]int(nil),
		[]string(nil),
		[][]int32(nil),
		make(chan int),
		complex64(0),
	}
	for _, sample := range samples {
		if _, err := reg.typeTagOf(reflect.TypeOf(sample)); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("** typeTagOf(%T) = %v, wanted ErrUnsupportedType", sample, err)
		}
	}
}

func TestNestedAutoRegistration(t *testing.T) {
	reg := NewTypeRegistry()
	ensure(reg.Register(descNested{}))
	if _, err := reg.describe(reflect.TypeOf(descNested{})); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.resolve(canonicalName(reflect.TypeOf(descSample{}))); !ok {
		t.Error("** nested struct type was not auto-registered")
	}
}

func TestRegisterErrors(t *testing.T) {
	reg := NewTypeRegistry()
	if err := reg.Register(42); !errors.Is(err, ErrNotStruct) {
		t.Errorf("** Register(42) = %v", err)
	}
	if err := reg.Register(nil); !errors.Is(err, ErrNotStruct) {
		t.Errorf("** Register(nil) = %v", err)
	}
	if err := reg.RegisterAs("", descSample{}); err == nil {
		t.Error("** RegisterAs with empty name succeeded")
	}

	ensure(reg.RegisterAs("test.Taken", descSample{}))
	if err := reg.RegisterAs("test.Taken", descNested{}); err == nil {
		t.Error("** conflicting RegisterAs succeeded")
	}
	if err := reg.RegisterAs("test.Taken", descSample{}); err != nil {
		t.Errorf("** idempotent RegisterAs failed: %v", err)
	}
}

func TestInstantiate(t *testing.T) {
	reg := NewTypeRegistry()
	ensure(reg.RegisterAs("test.Sample", descSample{}))

	v, ok := reg.instantiate("test.Sample")
	if !ok {
		t.Fatal("** instantiate failed")
	}
	if _, isSample := v.Interface().(*descSample); !isSample {
		t.Errorf("** instantiate returned %T", v.Interface())
	}
	if _, ok := reg.instantiate("test.Unknown"); ok {
		t.Error("** instantiate of unknown name succeeded")
	}
}
