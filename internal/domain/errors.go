package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when input does not normalize to a UK postcode.
	ErrInvalidFormat = errors.New("invalid postcode format")

	// ErrBatchTooLarge is returned when a bulk lookup exceeds MaxBulkLookup postcodes.
	ErrBatchTooLarge = errors.New("bulk lookup batch too large")

	// ErrInvalidUnit is returned for a distance unit other than kilometers or miles.
	ErrInvalidUnit = errors.New("invalid distance unit")

	// ErrNetwork matches any *NetworkError via errors.Is.
	ErrNetwork = errors.New("postcode lookup failed")
)

// NetworkError reports a failed call to the remote postcode service: a
// transport failure, a timeout, an undecodable body, or an HTTP status other
// than 2xx and 404.
type NetworkError struct {
	Op         string // "lookup" or "bulk"
	Postcode   string // empty for bulk calls
	StatusCode int    // 0 when no response was received
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	target := e.Op
	if e.Postcode != "" {
		target = fmt.Sprintf("%s %s", e.Op, e.Postcode)
	}
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("postcode %s: status %d: %s", target, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("postcode %s: status %d", target, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("postcode %s: %v", target, e.Err)
	default:
		return fmt.Sprintf("postcode %s failed", target)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrNetwork) true for every NetworkError.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
