// Package registry owns the claim records and drives the claim lifecycle:
//
//	created → hospital_submitted → patient_confirmed → pharmacy_confirmed → approved
//
// Every operation is an authorization gate over one transition; the terminal
// transition additionally runs fraud review and the payout inside one
// database transaction.
package registry

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

// Status is the lifecycle stage of a claim. Transitions are strictly ordered
// and never skip or repeat a stage.
type Status string

const (
	StatusCreated           Status = "created"
	StatusHospitalSubmitted Status = "hospital_submitted"
	StatusPatientConfirmed  Status = "patient_confirmed"
	StatusPharmacyConfirmed Status = "pharmacy_confirmed"
	StatusApproved          Status = "approved"
)

// HospitalData is the treatment record a hospital attaches to a claim. It is
// stored verbatim at submission; the prescription fingerprint and signature
// are only checked later, at pharmacy confirmation.
type HospitalData struct {
	Illness           string        `json:"illness"`
	DoctorName        string        `json:"doctor_name"`
	Medicines         []string      `json:"medicines"`
	MedicineAmounts   []int64       `json:"medicine_amounts"`
	TreatmentDays     int           `json:"treatment_days"`
	PrescriptionHash  hexutil.Bytes `json:"prescription_hash"`
	HospitalSignature hexutil.Bytes `json:"hospital_signature"`
}

// Claim maps to the claims table.
type Claim struct {
	ID                  uuid.UUID      `json:"id"`
	Patient             common.Address `json:"patient"`
	Province            string         `json:"province"`
	HospitalName        string         `json:"hospital_name"`
	Hospital            *HospitalData  `json:"hospital_data,omitempty"`
	PharmacyConfirmed   bool           `json:"pharmacy_confirmed"`
	PharmacyName        *string        `json:"pharmacy_name,omitempty"`
	PharmacyOperator    *string        `json:"pharmacy_operator,omitempty"`
	PharmacyConfirmedAt *time.Time     `json:"pharmacy_confirmed_at,omitempty"`
	Approved            bool           `json:"approved"`
	Status              Status         `json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
