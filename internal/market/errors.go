package market

import (
	"errors"
	"fmt"
)

// ErrDataFormat matches every *DataFormatError via errors.Is.
var ErrDataFormat = errors.New("market: data format error")

// DataFormatError reports a malformed market collection or a latest report
// with a missing or non-numeric required field. It is never defaulted away.
type DataFormatError struct {
	Market string // display name, empty for collection-level errors
	Field  string // report field, empty when not field specific
	Reason string
	Err    error // underlying cause, if any
}

func (e *DataFormatError) Error() string {
	switch {
	case e.Market != "" && e.Field != "":
		return fmt.Sprintf("market: %q: field %s: %s", e.Market, e.Field, e.Reason)
	case e.Market != "":
		return fmt.Sprintf("market: %q: %s", e.Market, e.Reason)
	default:
		return "market: " + e.Reason
	}
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

func (e *DataFormatError) Is(target error) bool {
	return target == ErrDataFormat
}
