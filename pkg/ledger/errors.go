package ledger

import "errors"

var (
	// ErrNotFound means the ledger has no record (or entity) for the
	// identifier. Distinct from transport failure.
	ErrNotFound = errors.New("ledger: not found")
	// ErrUnauthorized means the ledger's access-control rule rejected the
	// operation for the signing principal.
	ErrUnauthorized = errors.New("ledger: unauthorized")
	// ErrDuplicateRecordID means a record with the same identifier already
	// exists. Surfaced as a ledger rejection, never pre-checked locally.
	ErrDuplicateRecordID = errors.New("ledger: duplicate record id")
	// ErrNetwork is a transient transport failure; callers may retry with
	// backoff.
	ErrNetwork = errors.New("ledger: network error")
	// ErrConfirmationTimeout means the bounded confirmation poll was
	// exhausted. The transaction may still land; this is a liveness
	// failure, not proof of rejection.
	ErrConfirmationTimeout = errors.New("ledger: confirmation timeout")
	// ErrInvalidInput means a malformed address or identifier.
	ErrInvalidInput = errors.New("ledger: invalid input")
)

// IsRetryable reports whether the error class permits retrying the same
// call unchanged. Ledger rejections are not retryable without new input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrConfirmationTimeout)
}
