// Package fraud gates claim approval. It keeps one history row per
// (patient, illness) pair and rejects a claim whose pharmacy confirmation
// falls inside the dispensation window left by the previous treatment.
package fraud

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IllnessHistory maps to the illness_history table. Created on the first
// approved claim for a (patient, illness) pair, overwritten on each later
// approval, never deleted.
type IllnessHistory struct {
	Patient           common.Address `json:"patient"`
	Illness           string         `json:"illness"`
	LastPharmacyTime  time.Time      `json:"last_pharmacy_time"`
	LastTreatmentDays int            `json:"last_treatment_days"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Window returns the minimum gap required before the next dispensation for
// the same illness.
func (h *IllnessHistory) Window() time.Duration {
	return time.Duration(h.LastTreatmentDays) * 24 * time.Hour
}
