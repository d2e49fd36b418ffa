package reimburse

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimsure/claimsure/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Price Repository ===========

type priceRepoPG struct{ pool *pgxpool.Pool }

func NewPriceRepoPG(pool *pgxpool.Pool) PriceRepository { return &priceRepoPG{pool: pool} }

func (r *priceRepoPG) Set(ctx context.Context, drug string, price int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO drug_prices (drug, price, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (drug) DO UPDATE SET price = EXCLUDED.price, updated_at = NOW()`,
		drug, price)
	return err
}

func (r *priceRepoPG) Get(ctx context.Context, drug string) (int64, bool, error) {
	var price int64
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT price FROM drug_prices WHERE drug = $1`, drug).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (r *priceRepoPG) List(ctx context.Context, limit, offset int) ([]*DrugPrice, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM drug_prices`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT drug, price, updated_at FROM drug_prices ORDER BY drug LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var prices []*DrugPrice
	for rows.Next() {
		var p DrugPrice
		if err := rows.Scan(&p.Drug, &p.Price, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		prices = append(prices, &p)
	}
	return prices, total, rows.Err()
}

// =========== Rate Repository ===========

type rateRepoPG struct{ pool *pgxpool.Pool }

func NewRateRepoPG(pool *pgxpool.Pool) RateRepository { return &rateRepoPG{pool: pool} }

func (r *rateRepoPG) Set(ctx context.Context, province, drug string, percent int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO reimbursement_rates (province, drug, percent, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (province, drug) DO UPDATE SET percent = EXCLUDED.percent, updated_at = NOW()`,
		province, drug, percent)
	return err
}

func (r *rateRepoPG) Get(ctx context.Context, province, drug string) (int64, bool, error) {
	var percent int64
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT percent FROM reimbursement_rates WHERE province = $1 AND drug = $2`,
		province, drug).Scan(&percent)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return percent, true, nil
}

func (r *rateRepoPG) List(ctx context.Context, limit, offset int) ([]*Rate, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reimbursement_rates`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT province, drug, percent, updated_at
		FROM reimbursement_rates ORDER BY province, drug LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rates []*Rate
	for rows.Next() {
		var rt Rate
		if err := rows.Scan(&rt.Province, &rt.Drug, &rt.Percent, &rt.UpdatedAt); err != nil {
			return nil, 0, err
		}
		rates = append(rates, &rt)
	}
	return rates, total, rows.Err()
}

// =========== Funds Repository ===========

type fundsRepoPG struct{ pool *pgxpool.Pool }

func NewFundsRepoPG(pool *pgxpool.Pool) FundsRepository { return &fundsRepoPG{pool: pool} }

func (r *fundsRepoPG) PoolBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT balance FROM funds_pool WHERE id = 1`).Scan(&balance)
	return balance, err
}

func (r *fundsRepoPG) Deposit(ctx context.Context, amount int64) (int64, error) {
	var balance int64
	err := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE funds_pool SET balance = balance + $1 WHERE id = 1
		RETURNING balance`, amount).Scan(&balance)
	return balance, err
}

func (r *fundsRepoPG) Transfer(ctx context.Context, to common.Address, amount int64) error {
	q := conn(ctx, r.pool)

	// The balance guard in the WHERE clause makes overdraw impossible even
	// under concurrent settlements; the CHECK constraint backs it up.
	tag, err := q.Exec(ctx,
		`UPDATE funds_pool SET balance = balance - $1 WHERE id = 1 AND balance >= $1`, amount)
	if err != nil {
		return fmt.Errorf("debit pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}

	_, err = q.Exec(ctx, `
		INSERT INTO patient_balances (address, balance)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET balance = patient_balances.balance + EXCLUDED.balance`,
		to.Hex(), amount)
	if err != nil {
		return fmt.Errorf("credit patient: %w", err)
	}
	return nil
}

func (r *fundsRepoPG) Balance(ctx context.Context, addr common.Address) (int64, error) {
	var balance int64
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT balance FROM patient_balances WHERE address = $1`, addr.Hex()).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}
