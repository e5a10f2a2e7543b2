package lookup

import (
	"errors"
	"fmt"
)

// ErrNoPages is returned by RandomPage when the base namespace is empty.
var ErrNoPages = errors.New("lookup: no pages found")

// MalformedInputError reports a missing required request parameter.
type MalformedInputError struct {
	Param string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("lookup: missing %s parameter", e.Param)
}

// IsMalformedInput reports whether err is a *MalformedInputError.
func IsMalformedInput(err error) bool {
	var mi *MalformedInputError
	return errors.As(err, &mi)
}

func required(param, value string) error {
	if value == "" {
		return &MalformedInputError{Param: param}
	}
	return nil
}
