package transaction

import "errors"

// ErrNotFound is returned for missing transactions and for transactions
// owned by another user.
var ErrNotFound = errors.New("transaction not found")

// ErrInvalidPeriod is returned for periods not formatted as YYYY-MM.
var ErrInvalidPeriod = errors.New("period must be formatted as YYYY-MM")
