// Package reimburse is the reimbursement engine: the drug price table, the
// per-(province, drug) rate table, the custodied funds pool, and the payout
// computation that settles an approved claim.
package reimburse

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// DrugPrice maps to the drug_prices table. Prices are in the smallest
// currency unit.
type DrugPrice struct {
	Drug      string    `json:"drug"`
	Price     int64     `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rate maps to the reimbursement_rates table. The percentage is policy
// controlled and deliberately unbounded above 100.
type Rate struct {
	Province  string    `json:"province"`
	Drug      string    `json:"drug"`
	Percent   int64     `json:"percent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PayoutInput carries the claim fields the payout needs.
type PayoutInput struct {
	ClaimID   uuid.UUID
	Patient   common.Address
	Province  string
	Medicines []string
	Amounts   []int64
}
