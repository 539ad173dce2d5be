package knowledge

import "errors"

var (
	// ErrNotFound signals an unknown record id.
	ErrNotFound = errors.New("knowledge: record not found")
	// ErrDuplicateQuestion signals the unique question constraint fired on
	// create. Callers resolve it by retrying the lookup, never by failing
	// the request.
	ErrDuplicateQuestion = errors.New("knowledge: question already exists")
)
