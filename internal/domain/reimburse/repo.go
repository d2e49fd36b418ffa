package reimburse

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type PriceRepository interface {
	Set(ctx context.Context, drug string, price int64) error
	// Get returns the unit price and whether the drug is priced at all.
	Get(ctx context.Context, drug string) (int64, bool, error)
	List(ctx context.Context, limit, offset int) ([]*DrugPrice, int, error)
}

type RateRepository interface {
	Set(ctx context.Context, province, drug string, percent int64) error
	// Get returns the rate and whether any rate is configured for the pair.
	Get(ctx context.Context, province, drug string) (int64, bool, error)
	List(ctx context.Context, limit, offset int) ([]*Rate, int, error)
}

type FundsRepository interface {
	PoolBalance(ctx context.Context) (int64, error)
	// Deposit adds to the pool and returns the new balance.
	Deposit(ctx context.Context, amount int64) (int64, error)
	// Transfer debits the pool and credits the patient atomically; it fails
	// with ErrInsufficientFunds without moving anything when the pool cannot
	// cover the amount.
	Transfer(ctx context.Context, to common.Address, amount int64) error
	Balance(ctx context.Context, addr common.Address) (int64, error)
}
