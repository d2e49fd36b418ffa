package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	Patient      *common.Address
	Status       *Status
	HospitalName *string
}

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	// GetForUpdate loads the claim with a row lock so no two lifecycle
	// operations interleave on the same record. Must run inside a
	// transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Claim, error)
	Update(ctx context.Context, c *Claim) error
	List(ctx context.Context, filter ClaimFilter, limit, offset int) ([]*Claim, int, error)
}

// UsedSignatureRepository is the global replay-prevention set. A fingerprint
// consumed once can never authorize another confirmation, on any claim.
type UsedSignatureRepository interface {
	// Consume marks the fingerprint used, failing with ErrSignatureReplay if
	// it already was.
	Consume(ctx context.Context, fingerprint []byte) error
}
