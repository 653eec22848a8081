package ledger

import "errors"

var (
	// ErrUnavailable means the backing store could not be reached, authenticated
	// or written to.
	ErrUnavailable = errors.New("ledger: store unavailable")
	// ErrNoRecord is a legitimate negative result, not a failure.
	ErrNoRecord = errors.New("ledger: no matching record")
	// ErrMalformedDate marks a matched row whose date column does not parse.
	ErrMalformedDate = errors.New("ledger: malformed payment date")
	// ErrInvalidRecord is returned for records that fail validation before append.
	ErrInvalidRecord = errors.New("ledger: invalid record")
)

// IsUnavailable reports whether err came from the store rather than the data.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
