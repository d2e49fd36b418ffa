package registry

import "errors"

var (
	// ErrClaimNotFound is returned when no claim exists under an id.
	ErrClaimNotFound = errors.New("registry: claim not found")

	// ErrInvalidStageTransition means an operation was attempted outside its
	// required lifecycle stage.
	ErrInvalidStageTransition = errors.New("registry: operation not valid in current claim stage")

	// ErrUnauthorized means the caller identity fails an authorization check.
	ErrUnauthorized = errors.New("registry: caller not authorized for this operation")

	// ErrSignatureReplay means the signed fingerprint was already consumed by
	// an earlier confirmation, anywhere in the system.
	ErrSignatureReplay = errors.New("registry: signature fingerprint already consumed")

	// ErrInvalidSignature means signature recovery failed or recovered an
	// identity other than the expected one.
	ErrInvalidSignature = errors.New("registry: signature invalid or signed by unexpected identity")

	// ErrDataMismatch means the presented fingerprint differs from the stored
	// prescription fingerprint.
	ErrDataMismatch = errors.New("registry: fingerprint does not match stored prescription")
)
