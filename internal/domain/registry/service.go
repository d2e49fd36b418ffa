package registry

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/claimsure/claimsure/internal/platform/notification"
)

// DirectoryResolver looks up the authorized address for a hospital name.
// Implementations return the zero address (and no error) when no hospital is
// registered under the name.
type DirectoryResolver interface {
	Resolve(ctx context.Context, name string) (common.Address, error)
}

// SignatureVerifier recovers the address that signed a fingerprint.
type SignatureVerifier interface {
	RecoverAddress(fingerprint, sig []byte) (common.Address, error)
}

// FraudReviewer gates approval. A nil return accepts the claim and records
// its dispensation in the illness history; the caller's transaction carries
// that mutation.
type FraudReviewer interface {
	Review(ctx context.Context, claim *Claim) error
}

// PayoutEngine settles an approved claim and returns the amount paid.
type PayoutEngine interface {
	Payout(ctx context.Context, claim *Claim) (int64, error)
}

// TxRunner executes fn atomically; every repository call made through fn's
// context commits or rolls back as one unit.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier publishes lifecycle events.
type Notifier interface {
	Publish(ctx context.Context, e notification.Event) notification.Event
}

type Service struct {
	claims    ClaimRepository
	usedSigs  UsedSignatureRepository
	directory DirectoryResolver
	verifier  SignatureVerifier
	fraud     FraudReviewer
	engine    PayoutEngine
	tx        TxRunner
	notifier  Notifier
	authority common.Address
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(
	claims ClaimRepository,
	usedSigs UsedSignatureRepository,
	directory DirectoryResolver,
	verifier SignatureVerifier,
	fraud FraudReviewer,
	engine PayoutEngine,
	tx TxRunner,
	notifier Notifier,
	authority common.Address,
	logger zerolog.Logger,
) *Service {
	return &Service{
		claims:    claims,
		usedSigs:  usedSigs,
		directory: directory,
		verifier:  verifier,
		fraud:     fraud,
		engine:    engine,
		tx:        tx,
		notifier:  notifier,
		authority: authority,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) publish(ctx context.Context, t notification.EventType, claimID uuid.UUID, actor common.Address, detail map[string]string) {
	if s.notifier == nil {
		return
	}
	id := claimID
	s.notifier.Publish(ctx, notification.Event{
		Type:    t,
		ClaimID: &id,
		Actor:   actor.Hex(),
		Detail:  detail,
	})
}

// Open creates a claim in stage created. The caller becomes the patient.
func (s *Service) Open(ctx context.Context, caller common.Address, hospitalName, province string) (*Claim, error) {
	if hospitalName == "" {
		return nil, fmt.Errorf("hospital name is required")
	}
	if province == "" {
		return nil, fmt.Errorf("province is required")
	}

	c := &Claim{
		ID:           uuid.New(),
		Patient:      caller,
		Province:     province,
		HospitalName: hospitalName,
		Status:       StatusCreated,
	}
	if err := s.claims.Create(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, notification.ClaimCreated, c.ID, caller, map[string]string{
		"hospital_name": hospitalName,
		"province":      province,
	})
	s.logger.Info().Str("claim_id", c.ID.String()).Str("patient", caller.Hex()).Msg("claim opened")
	return c, nil
}

// SubmitHospitalData attaches the treatment record to a claim in stage
// created. The caller must be the address the directory lists for the claim's
// hospital name. The data itself is stored verbatim; its fingerprint and
// signature are only verified at pharmacy confirmation.
func (s *Service) SubmitHospitalData(ctx context.Context, caller common.Address, claimID uuid.UUID, data HospitalData) (*Claim, error) {
	var updated *Claim
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.claims.GetForUpdate(ctx, claimID)
		if err != nil {
			return err
		}

		// Identity is checked before the stage: a caller the directory does
		// not vouch for is unauthorized whatever state the claim is in.
		expected, err := s.directory.Resolve(ctx, c.HospitalName)
		if err != nil {
			return err
		}
		if expected == (common.Address{}) || expected != caller {
			return ErrUnauthorized
		}
		if c.Status != StatusCreated {
			return ErrInvalidStageTransition
		}

		d := data
		c.Hospital = &d
		c.Status = StatusHospitalSubmitted
		if err := s.claims.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notification.HospitalSubmitted, claimID, caller, map[string]string{
		"illness": data.Illness,
	})
	return updated, nil
}

// ConfirmByPatient advances a hospital-submitted claim on the patient's
// countersignature. The signed fingerprint is consumed system-wide: once used
// here it can never authorize another confirmation, on any claim.
func (s *Service) ConfirmByPatient(ctx context.Context, caller common.Address, claimID uuid.UUID, fingerprint, sig []byte) (*Claim, error) {
	var updated *Claim
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.claims.GetForUpdate(ctx, claimID)
		if err != nil {
			return err
		}
		if c.Status != StatusHospitalSubmitted {
			return ErrInvalidStageTransition
		}
		if caller != c.Patient {
			return ErrUnauthorized
		}

		if err := s.usedSigs.Consume(ctx, fingerprint); err != nil {
			return err
		}

		signer, err := s.verifier.RecoverAddress(fingerprint, sig)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		if signer != c.Patient {
			return ErrInvalidSignature
		}

		c.Status = StatusPatientConfirmed
		if err := s.claims.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notification.PatientConfirmed, claimID, caller, nil)
	return updated, nil
}

// ConfirmByPharmacy advances a patient-confirmed claim once the pharmacy
// presents the prescription fingerprint. The hospital's stored signature over
// that fingerprint is verified here, against the directory entry for the
// claim's hospital name — the deferred half of hospital authentication.
func (s *Service) ConfirmByPharmacy(ctx context.Context, caller common.Address, claimID uuid.UUID, pharmacyName, operator string, fingerprint []byte) (*Claim, error) {
	var updated *Claim
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.claims.GetForUpdate(ctx, claimID)
		if err != nil {
			return err
		}
		if c.Status != StatusPatientConfirmed {
			return ErrInvalidStageTransition
		}
		if c.Hospital == nil || !bytes.Equal(fingerprint, c.Hospital.PrescriptionHash) {
			return ErrDataMismatch
		}

		signer, err := s.verifier.RecoverAddress(c.Hospital.PrescriptionHash, c.Hospital.HospitalSignature)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		expected, err := s.directory.Resolve(ctx, c.HospitalName)
		if err != nil {
			return err
		}
		if expected == (common.Address{}) {
			return ErrUnauthorized
		}
		if signer != expected {
			return ErrInvalidSignature
		}

		now := s.now().UTC()
		c.PharmacyConfirmed = true
		c.PharmacyName = &pharmacyName
		c.PharmacyOperator = &operator
		c.PharmacyConfirmedAt = &now
		c.Status = StatusPharmacyConfirmed
		if err := s.claims.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notification.PharmacyConfirmed, claimID, caller, map[string]string{
		"pharmacy_name":     pharmacyName,
		"pharmacy_operator": operator,
	})
	return updated, nil
}

// ApproveAndSettle is the terminal transition, restricted to the insurance
// authority. Fraud review, the approval, and the payout run in one
// transaction: a rejection or an underfunded pool rolls everything back and
// the claim stays pharmacy_confirmed, history untouched.
func (s *Service) ApproveAndSettle(ctx context.Context, caller common.Address, claimID uuid.UUID) (*Claim, int64, error) {
	if caller != s.authority {
		return nil, 0, ErrUnauthorized
	}

	var updated *Claim
	var amount int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.claims.GetForUpdate(ctx, claimID)
		if err != nil {
			return err
		}
		if c.Status != StatusPharmacyConfirmed {
			return ErrInvalidStageTransition
		}

		if err := s.fraud.Review(ctx, c); err != nil {
			return err
		}

		c.Approved = true
		c.Status = StatusApproved
		if err := s.claims.Update(ctx, c); err != nil {
			return err
		}

		amount, err = s.engine.Payout(ctx, c)
		if err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.publish(ctx, notification.ClaimApproved, claimID, caller, nil)
	if s.notifier != nil {
		id := claimID
		a := amount
		s.notifier.Publish(ctx, notification.Event{
			Type:    notification.PaymentSent,
			ClaimID: &id,
			Actor:   updated.Patient.Hex(),
			Amount:  &a,
		})
	}
	s.logger.Info().
		Str("claim_id", claimID.String()).
		Str("patient", updated.Patient.Hex()).
		Int64("amount", amount).
		Msg("claim approved and settled")
	return updated, amount, nil
}

// Get returns one claim.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.claims.GetByID(ctx, id)
}

// List returns claims matching the filter.
func (s *Service) List(ctx context.Context, filter ClaimFilter, limit, offset int) ([]*Claim, int, error) {
	return s.claims.List(ctx, filter, limit, offset)
}
