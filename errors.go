package metaser

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCompactID means a payload references a schema id that the
	// store has no mapping for.
	ErrUnknownCompactID = errors.New("unknown schema id")

	// ErrUnknownRecord means a stored schema names a record type that is not
	// registered with the type registry.
	ErrUnknownRecord = errors.New("unknown record type")

	// ErrUnsupportedType means a struct field has a Go type the wire format
	// cannot represent.
	ErrUnsupportedType = errors.New("unsupported field type")

	// ErrNotStruct means a value passed for serialization or registration is
	// not a struct or pointer to struct.
	ErrNotStruct = errors.New("not a struct")

	// ErrCorruptStore means the store returned bytes that do not parse as
	// the expected schema or snapshot encoding.
	ErrCorruptStore = errors.New("corrupt store data")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}
