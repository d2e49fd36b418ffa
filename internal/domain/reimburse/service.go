package reimburse

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var (
	// ErrInsufficientFunds means the pool cannot cover a payout; nothing is
	// transferred.
	ErrInsufficientFunds = errors.New("reimburse: pool balance cannot cover payout")

	// ErrDataMismatch means the medicine and quantity lists differ in length.
	ErrDataMismatch = errors.New("reimburse: medicine and quantity lists differ in length")

	// ErrInvalidQuantity means a prescription line carries a negative
	// quantity. A negative line would debit the patient and credit the pool.
	ErrInvalidQuantity = errors.New("reimburse: medicine quantity is negative")

	// ErrAmountOverflow means a line item or the payout total does not fit
	// in an int64.
	ErrAmountOverflow = errors.New("reimburse: payout amount overflows")
)

type Service struct {
	prices PriceRepository
	rates  RateRepository
	funds  FundsRepository
	logger zerolog.Logger
}

func NewService(prices PriceRepository, rates RateRepository, funds FundsRepository, logger zerolog.Logger) *Service {
	return &Service{prices: prices, rates: rates, funds: funds, logger: logger}
}

// SetPrice overwrites the unit price for a drug. No history is kept.
func (s *Service) SetPrice(ctx context.Context, drug string, price int64) error {
	if drug == "" {
		return fmt.Errorf("drug name is required")
	}
	if price < 0 {
		return fmt.Errorf("price must be non-negative")
	}
	return s.prices.Set(ctx, drug, price)
}

// SetRate overwrites the reimbursement percentage for a (province, drug)
// pair. Values above 100 are legal policy and stored as-is, but worth a
// warning since they inflate payouts past the drug cost.
func (s *Service) SetRate(ctx context.Context, province, drug string, percent int64) error {
	if province == "" || drug == "" {
		return fmt.Errorf("province and drug are required")
	}
	if percent < 0 {
		return fmt.Errorf("rate must be non-negative")
	}
	if percent > 100 {
		s.logger.Warn().
			Str("province", province).
			Str("drug", drug).
			Int64("percent", percent).
			Msg("reimbursement rate above 100%")
	}
	return s.rates.Set(ctx, province, drug, percent)
}

// Deposit tops up the funds pool and returns the new balance.
func (s *Service) Deposit(ctx context.Context, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("deposit must be positive")
	}
	return s.funds.Deposit(ctx, amount)
}

// Quote computes the reimbursement total for the claim's line items without
// moving funds: Σ floor(price × quantity × rate / 100). A drug with no price
// or no rate for the province contributes zero.
func (s *Service) Quote(ctx context.Context, in PayoutInput) (int64, error) {
	if len(in.Medicines) != len(in.Amounts) {
		return 0, ErrDataMismatch
	}
	for _, qty := range in.Amounts {
		if qty < 0 {
			return 0, ErrInvalidQuantity
		}
	}

	var total int64
	for i, drug := range in.Medicines {
		price, ok, err := s.prices.Get(ctx, drug)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		percent, ok, err := s.rates.Get(ctx, in.Province, drug)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}

		// price, qty and percent are all non-negative here, so overflow
		// checks only need the upper bound.
		qty := in.Amounts[i]
		if qty != 0 && price > math.MaxInt64/qty {
			return 0, ErrAmountOverflow
		}
		gross := price * qty
		if percent != 0 && gross > math.MaxInt64/percent {
			return 0, ErrAmountOverflow
		}
		line := gross * percent / 100
		if total > math.MaxInt64-line {
			return 0, ErrAmountOverflow
		}
		total += line
	}
	return total, nil
}

// Payout computes the reimbursement total and moves it from the pool to the
// patient. The debit and credit land in the caller's transaction, so a later
// failure in the same settlement rolls them back.
func (s *Service) Payout(ctx context.Context, in PayoutInput) (int64, error) {
	total, err := s.Quote(ctx, in)
	if err != nil {
		return 0, err
	}

	if err := s.funds.Transfer(ctx, in.Patient, total); err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("claim_id", in.ClaimID.String()).
		Str("patient", in.Patient.Hex()).
		Int64("amount", total).
		Msg("payout settled")
	return total, nil
}

// PoolBalance returns the custodied pool balance.
func (s *Service) PoolBalance(ctx context.Context) (int64, error) {
	return s.funds.PoolBalance(ctx)
}

// PatientBalance returns the accumulated reimbursements of one patient.
func (s *Service) PatientBalance(ctx context.Context, addr common.Address) (int64, error) {
	return s.funds.Balance(ctx, addr)
}

// ListPrices returns the drug price table.
func (s *Service) ListPrices(ctx context.Context, limit, offset int) ([]*DrugPrice, int, error) {
	return s.prices.List(ctx, limit, offset)
}

// ListRates returns the reimbursement rate table.
func (s *Service) ListRates(ctx context.Context, limit, offset int) ([]*Rate, int, error) {
	return s.rates.List(ctx, limit, offset)
}
