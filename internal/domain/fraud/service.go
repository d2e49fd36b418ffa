package fraud

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	// ErrFraudRejected means the claim falls inside the dispensation window
	// recorded by a previous approval for the same (patient, illness).
	ErrFraudRejected = errors.New("fraud: dispensation window not elapsed")

	// ErrNotConfirmed means review was asked for a claim that has not passed
	// pharmacy confirmation.
	ErrNotConfirmed = errors.New("fraud: claim is not pharmacy-confirmed")
)

// ReviewInput carries the claim fields the review needs.
type ReviewInput struct {
	ClaimID             uuid.UUID
	Patient             common.Address
	Illness             string
	PharmacyConfirmed   bool
	PharmacyConfirmedAt time.Time
	TreatmentDays       int
}

type Service struct {
	histories HistoryRepository
}

func NewService(histories HistoryRepository) *Service {
	return &Service{histories: histories}
}

// Review accepts or rejects a pharmacy-confirmed claim. A first claim for a
// (patient, illness) pair is accepted unconditionally. A repeat claim is
// rejected when the time since the previous pharmacy confirmation is shorter
// than that treatment's duration. On accept, the history row is overwritten
// with the current claim's confirmation time and treatment duration.
//
// The caller is expected to run Review inside its settlement transaction so
// the history mutation rolls back with a failed payout.
func (s *Service) Review(ctx context.Context, in ReviewInput) error {
	if !in.PharmacyConfirmed {
		return ErrNotConfirmed
	}

	history, err := s.histories.Get(ctx, in.Patient, in.Illness)
	switch {
	case errors.Is(err, ErrNoHistory):
		// First claim for this pair.
	case err != nil:
		return err
	default:
		elapsed := in.PharmacyConfirmedAt.Sub(history.LastPharmacyTime)
		if elapsed < history.Window() {
			return ErrFraudRejected
		}
	}

	return s.histories.Upsert(ctx, &IllnessHistory{
		Patient:           in.Patient,
		Illness:           in.Illness,
		LastPharmacyTime:  in.PharmacyConfirmedAt,
		LastTreatmentDays: in.TreatmentDays,
	})
}

// History returns the stored record for a (patient, illness) pair.
func (s *Service) History(ctx context.Context, patient common.Address, illness string) (*IllnessHistory, error) {
	return s.histories.Get(ctx, patient, illness)
}

// List returns history rows for auditing.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*IllnessHistory, int, error) {
	return s.histories.List(ctx, limit, offset)
}
