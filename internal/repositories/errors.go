package repositories

import "errors"

var (
	// ErrNotFound is returned when a lookup or a targeted write matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleState is returned when a conditional update finds the row
	// no longer in the expected state
	ErrStaleState = errors.New("record state changed")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func IsStaleStateError(err error) bool {
	return errors.Is(err, ErrStaleState)
}
