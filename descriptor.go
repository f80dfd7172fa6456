package metaser

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(Decimal{})
)

// TypeRegistry maps record names to Go struct types. Types must be
// registered before values of them can be deserialized; serialization
// auto-registers types under their canonical name.
type TypeRegistry struct {
	byName sync.Map // string -> reflect.Type
	names  sync.Map // reflect.Type -> string
	descs  sync.Map // reflect.Type -> *typeDesc
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{}
}

// Register registers the struct type of sample under its canonical name,
// "pkgpath.TypeName". sample may be a struct value or a pointer to one.
func (reg *TypeRegistry) Register(sample any) error {
	typ, err := structTypeOf(sample)
	if err != nil {
		return err
	}
	return reg.registerType(canonicalName(typ), typ)
}

// RegisterAs pins an explicit record name for the struct type of sample.
// Multiple names may alias the same type; the first registered name is the
// one used when serializing.
func (reg *TypeRegistry) RegisterAs(name string, sample any) error {
	if name == "" {
		return fmt.Errorf("empty record name")
	}
	typ, err := structTypeOf(sample)
	if err != nil {
		return err
	}
	return reg.registerType(name, typ)
}

func (reg *TypeRegistry) registerType(name string, typ reflect.Type) error {
	if prev, loaded := reg.byName.LoadOrStore(name, typ); loaded && prev.(reflect.Type) != typ {
		return fmt.Errorf("record name %q already registered for %v", name, prev)
	}
	reg.names.LoadOrStore(typ, name)
	return nil
}

func (reg *TypeRegistry) resolve(name string) (reflect.Type, bool) {
	v, ok := reg.byName.Load(name)
	if !ok {
		return nil, false
	}
	return v.(reflect.Type), true
}

// instantiate returns a pointer to a zeroed struct of the named record
// type, or false if the name is not registered.
func (reg *TypeRegistry) instantiate(name string) (reflect.Value, bool) {
	typ, ok := reg.resolve(name)
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.New(typ), true
}

func (reg *TypeRegistry) recordNameFor(typ reflect.Type) string {
	if v, ok := reg.names.Load(typ); ok {
		return v.(string)
	}
	name := canonicalName(typ)
	reg.byName.LoadOrStore(name, typ)
	actual, _ := reg.names.LoadOrStore(typ, name)
	return actual.(string)
}

func structTypeOf(sample any) (reflect.Type, error) {
	typ := reflect.TypeOf(sample)
	if typ == nil {
		return nil, ErrNotStruct
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, typ)
	}
	if typ.Name() == "" {
		return nil, fmt.Errorf("%w: anonymous struct", ErrNotStruct)
	}
	return typ, nil
}

func canonicalName(typ reflect.Type) string {
	return typ.PkgPath() + "." + typ.Name()
}

// typeDesc is the cached descriptor of a struct type: its record name and
// the serialized fields in lexicographic order.
type typeDesc struct {
	name   string
	typ    reflect.Type
	fields []fieldDesc
	byName map[string]*fieldDesc
}

type fieldDesc struct {
	name  string
	tag   string
	index []int
	typ   reflect.Type
}

func (desc *typeDesc) field(name string) *fieldDesc {
	return desc.byName[name]
}

func (desc *typeDesc) meta() *RecordMeta {
	m := &RecordMeta{RecordName: desc.name, Fields: make([]FieldInfo, len(desc.fields))}
	for i, f := range desc.fields {
		m.Fields[i] = FieldInfo{Name: f.name, Type: f.tag}
	}
	return m
}

func (reg *TypeRegistry) describe(typ reflect.Type) (*typeDesc, error) {
	if v, ok := reg.descs.Load(typ); ok {
		return v.(*typeDesc), nil
	}
	desc, err := reg.describeSlow(typ)
	if err != nil {
		return nil, err
	}
	actual, _ := reg.descs.LoadOrStore(typ, desc)
	return actual.(*typeDesc), nil
}

func (reg *TypeRegistry) describeSlow(typ reflect.Type) (*typeDesc, error) {
	name := reg.recordNameFor(typ)
	desc := &typeDesc{name: name, typ: typ, byName: make(map[string]*fieldDesc)}
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		fname := sf.Name
		if tag, ok := sf.Tag.Lookup("metaser"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				fname = tag
			}
		}
		wire, err := reg.typeTagOf(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, sf.Name, err)
		}
		desc.fields = append(desc.fields, fieldDesc{name: fname, tag: wire, index: sf.Index, typ: sf.Type})
	}
	slices.SortFunc(desc.fields, func(a, b fieldDesc) int {
		return strings.Compare(a.name, b.name)
	})
	for i := range desc.fields {
		f := &desc.fields[i]
		if _, dup := desc.byName[f.name]; dup {
			return nil, fmt.Errorf("%s: duplicate serialized field name %q", name, f.name)
		}
		desc.byName[f.name] = f
	}
	return desc, nil
}

func primitiveKindTag(k reflect.Kind) (string, bool) {
	switch k {
	case reflect.Bool:
		return tagBool, true
	case reflect.Int8:
		return tagInt8, true
	case reflect.Int16:
		return tagInt16, true
	case reflect.Int32:
		return tagInt32, true
	case reflect.Int64, reflect.Int:
		return tagInt64, true
	case reflect.Float32:
		return tagFloat32, true
	case reflect.Float64:
		return tagFloat64, true
	}
	return "", false
}

// typeTagOf maps a Go field type to its wire type tag. Struct types are
// auto-registered under their canonical name when first encountered.
func (reg *TypeRegistry) typeTagOf(typ reflect.Type) (string, error) {
	switch typ {
	case timeType:
		return tagInstant, nil
	case decimalType:
		return tagDecimal, nil
	}
	if tag, ok := primitiveKindTag(typ.Kind()); ok {
		return tag, nil
	}
	switch typ.Kind() {
	case reflect.String:
		return tagString, nil
	case reflect.Pointer:
		elem := typ.Elem()
		switch elem {
		case timeType:
			return tagInstant, nil
		case decimalType:
			return tagDecimal, nil
		}
		if tag, ok := primitiveKindTag(elem.Kind()); ok {
			return tag + "?", nil
		}
		switch elem.Kind() {
		case reflect.String:
			return tagString, nil
		case reflect.Struct:
			if elem.Name() == "" {
				return "", fmt.Errorf("%w: %v", ErrUnsupportedType, typ)
			}
			return reg.recordNameFor(elem), nil
		}
	case reflect.Slice:
		switch typ.Elem().Kind() {
		case reflect.Uint8, reflect.Int8:
			return tagInt8 + "[]", nil
		}
		if tag, ok := primitiveKindTag(typ.Elem().Kind()); ok {
			return tag + "[]", nil
		}
	case reflect.Struct:
		if typ.Name() == "" {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedType, typ)
		}
		return reg.recordNameFor(typ), nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnsupportedType, typ)
}
