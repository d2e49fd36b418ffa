package reimburse

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repositories --

type mockPriceRepo struct {
	prices map[string]int64
}

func newMockPriceRepo() *mockPriceRepo {
	return &mockPriceRepo{prices: make(map[string]int64)}
}

func (m *mockPriceRepo) Set(_ context.Context, drug string, price int64) error {
	m.prices[drug] = price
	return nil
}

func (m *mockPriceRepo) Get(_ context.Context, drug string) (int64, bool, error) {
	price, ok := m.prices[drug]
	return price, ok, nil
}

func (m *mockPriceRepo) List(_ context.Context, limit, offset int) ([]*DrugPrice, int, error) {
	var result []*DrugPrice
	for drug, price := range m.prices {
		result = append(result, &DrugPrice{Drug: drug, Price: price})
	}
	return result, len(result), nil
}

type rateKey struct{ province, drug string }

type mockRateRepo struct {
	rates map[rateKey]int64
}

func newMockRateRepo() *mockRateRepo {
	return &mockRateRepo{rates: make(map[rateKey]int64)}
}

func (m *mockRateRepo) Set(_ context.Context, province, drug string, percent int64) error {
	m.rates[rateKey{province, drug}] = percent
	return nil
}

func (m *mockRateRepo) Get(_ context.Context, province, drug string) (int64, bool, error) {
	percent, ok := m.rates[rateKey{province, drug}]
	return percent, ok, nil
}

func (m *mockRateRepo) List(_ context.Context, limit, offset int) ([]*Rate, int, error) {
	var result []*Rate
	for k, percent := range m.rates {
		result = append(result, &Rate{Province: k.province, Drug: k.drug, Percent: percent})
	}
	return result, len(result), nil
}

type mockFundsRepo struct {
	pool     int64
	balances map[common.Address]int64
}

func newMockFundsRepo(pool int64) *mockFundsRepo {
	return &mockFundsRepo{pool: pool, balances: make(map[common.Address]int64)}
}

func (m *mockFundsRepo) PoolBalance(_ context.Context) (int64, error) { return m.pool, nil }

func (m *mockFundsRepo) Deposit(_ context.Context, amount int64) (int64, error) {
	m.pool += amount
	return m.pool, nil
}

func (m *mockFundsRepo) Transfer(_ context.Context, to common.Address, amount int64) error {
	if m.pool < amount {
		return ErrInsufficientFunds
	}
	m.pool -= amount
	m.balances[to] += amount
	return nil
}

func (m *mockFundsRepo) Balance(_ context.Context, addr common.Address) (int64, error) {
	return m.balances[addr], nil
}

// -- Tests --

var testPatient = common.HexToAddress("0x00000000000000000000000000000000000000ee")

func newTestService(pool int64) (*Service, *mockFundsRepo) {
	funds := newMockFundsRepo(pool)
	return NewService(newMockPriceRepo(), newMockRateRepo(), funds, zerolog.Nop()), funds
}

func TestPayout_Arithmetic(t *testing.T) {
	svc, funds := newTestService(1000)
	ctx := context.Background()

	svc.SetPrice(ctx, "amoxicillin", 50)
	svc.SetPrice(ctx, "ibuprofen", 80)
	svc.SetRate(ctx, "hubei", "amoxicillin", 20)
	svc.SetRate(ctx, "hubei", "ibuprofen", 10)

	// floor(50*2*20/100) + floor(80*1*10/100) = 20 + 8 = 28
	total, err := svc.Payout(ctx, PayoutInput{
		ClaimID:   uuid.New(),
		Patient:   testPatient,
		Province:  "hubei",
		Medicines: []string{"amoxicillin", "ibuprofen"},
		Amounts:   []int64{2, 1},
	})
	if err != nil {
		t.Fatalf("Payout: %v", err)
	}
	if total != 28 {
		t.Errorf("total = %d, want 28", total)
	}
	if funds.pool != 972 {
		t.Errorf("pool = %d, want 972", funds.pool)
	}
	if funds.balances[testPatient] != 28 {
		t.Errorf("patient balance = %d, want 28", funds.balances[testPatient])
	}
}

func TestPayout_TruncatesPerLineItem(t *testing.T) {
	svc, _ := newTestService(1000)
	ctx := context.Background()

	svc.SetPrice(ctx, "syrup", 33)
	svc.SetRate(ctx, "hubei", "syrup", 10)

	// floor(33*1*10/100) = 3
	total, err := svc.Payout(ctx, PayoutInput{
		ClaimID: uuid.New(), Patient: testPatient, Province: "hubei",
		Medicines: []string{"syrup"}, Amounts: []int64{1},
	})
	if err != nil {
		t.Fatalf("Payout: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestPayout_UnknownDrugOrRateContributesZero(t *testing.T) {
	svc, funds := newTestService(1000)
	ctx := context.Background()

	svc.SetPrice(ctx, "amoxicillin", 50)
	svc.SetRate(ctx, "hubei", "amoxicillin", 20)
	// "mystery" has no price; amoxicillin has no rate in "yunnan".

	total, err := svc.Payout(ctx, PayoutInput{
		ClaimID: uuid.New(), Patient: testPatient, Province: "yunnan",
		Medicines: []string{"amoxicillin", "mystery"}, Amounts: []int64{2, 3},
	})
	if err != nil {
		t.Fatalf("Payout: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if funds.pool != 1000 {
		t.Errorf("pool = %d, want untouched 1000", funds.pool)
	}
}

func TestPayout_LengthMismatch(t *testing.T) {
	svc, _ := newTestService(1000)

	_, err := svc.Payout(context.Background(), PayoutInput{
		ClaimID: uuid.New(), Patient: testPatient, Province: "hubei",
		Medicines: []string{"amoxicillin", "ibuprofen"}, Amounts: []int64{2},
	})
	if !errors.Is(err, ErrDataMismatch) {
		t.Fatalf("got %v, want ErrDataMismatch", err)
	}
}

func TestPayout_NegativeQuantityRejected(t *testing.T) {
	svc, funds := newTestService(1000)
	ctx := context.Background()

	svc.SetPrice(ctx, "amoxicillin", 50)
	svc.SetRate(ctx, "hubei", "amoxicillin", 100)

	// A negative line would debit the patient and credit the pool.
	_, err := svc.Payout(ctx, PayoutInput{
		ClaimID: uuid.New(), Patient: testPatient, Province: "hubei",
		Medicines: []string{"amoxicillin"}, Amounts: []int64{-2},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("got %v, want ErrInvalidQuantity", err)
	}
	if funds.pool != 1000 || funds.balances[testPatient] != 0 {
		t.Error("rejected payout must not move funds")
	}
}

func TestQuote_OverflowRejected(t *testing.T) {
	svc, _ := newTestService(0)
	ctx := context.Background()

	svc.SetPrice(ctx, "amoxicillin", math.MaxInt64/2)
	svc.SetRate(ctx, "hubei", "amoxicillin", 100)

	_, err := svc.Quote(ctx, PayoutInput{
		ClaimID: uuid.New(), Patient: testPatient, Province: "hubei",
		Medicines: []string{"amoxicillin"}, Amounts: []int64{3},
	})
	if !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("price*qty overflow: got %v, want ErrAmountOverflow", err)
	}

	// The percent multiplication is guarded too.
	svc.SetPrice(ctx, "amoxicillin", math.MaxInt64/50)
	_, err = svc.Quote(ctx, PayoutInput{
		ClaimID: uuid.New(), Patient: testPatient, Province: "hubei",
		Medicines: []string{"amoxicillin"}, Amounts: []int64{1},
	})
	if !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("gross*percent overflow: got %v, want ErrAmountOverflow", err)
	}
}

func TestPayout_InsufficientFunds(t *testing.T) {
	svc, funds := newTestService(10)
	ctx := context.Background()

	svc.SetPrice(ctx, "amoxicillin", 50)
	svc.SetRate(ctx, "hubei", "amoxicillin", 100)

	_, err := svc.Payout(ctx, PayoutInput{
		ClaimID: uuid.New(), Patient: testPatient, Province: "hubei",
		Medicines: []string{"amoxicillin"}, Amounts: []int64{1},
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if funds.pool != 10 || funds.balances[testPatient] != 0 {
		t.Error("failed payout must not move funds")
	}
}

func TestSetRate_Above100Allowed(t *testing.T) {
	svc, _ := newTestService(1000)
	ctx := context.Background()

	if err := svc.SetRate(ctx, "hubei", "amoxicillin", 150); err != nil {
		t.Fatalf("SetRate above 100 must be permitted: %v", err)
	}
	svc.SetPrice(ctx, "amoxicillin", 100)

	total, err := svc.Quote(ctx, PayoutInput{
		Province: "hubei", Medicines: []string{"amoxicillin"}, Amounts: []int64{1},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if total != 150 {
		t.Errorf("total = %d, want 150", total)
	}
}

func TestSetPrice_Validation(t *testing.T) {
	svc, _ := newTestService(0)

	if err := svc.SetPrice(context.Background(), "", 10); err == nil {
		t.Error("empty drug name must fail")
	}
	if err := svc.SetPrice(context.Background(), "amoxicillin", -1); err == nil {
		t.Error("negative price must fail")
	}
}

func TestDeposit(t *testing.T) {
	svc, _ := newTestService(5)

	balance, err := svc.Deposit(context.Background(), 95)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
	if _, err := svc.Deposit(context.Background(), 0); err == nil {
		t.Error("non-positive deposit must fail")
	}
}
