package fraud

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimsure/claimsure/internal/platform/db"
)

// ErrNoHistory is returned when no history row exists for a (patient,
// illness) pair.
var ErrNoHistory = errors.New("fraud: no illness history")

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *historyRepoPG) scanHistory(row pgx.Row) (*IllnessHistory, error) {
	var h IllnessHistory
	var patient string
	err := row.Scan(&patient, &h.Illness, &h.LastPharmacyTime, &h.LastTreatmentDays, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoHistory
		}
		return nil, err
	}
	h.Patient = common.HexToAddress(patient)
	return &h, nil
}

func (r *historyRepoPG) Get(ctx context.Context, patient common.Address, illness string) (*IllnessHistory, error) {
	return r.scanHistory(r.conn(ctx).QueryRow(ctx, `
		SELECT patient, illness, last_pharmacy_time, last_treatment_days, updated_at
		FROM illness_history WHERE patient = $1 AND illness = $2`,
		patient.Hex(), illness))
}

func (r *historyRepoPG) Upsert(ctx context.Context, h *IllnessHistory) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO illness_history (patient, illness, last_pharmacy_time, last_treatment_days, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (patient, illness) DO UPDATE SET
			last_pharmacy_time = EXCLUDED.last_pharmacy_time,
			last_treatment_days = EXCLUDED.last_treatment_days,
			updated_at = NOW()`,
		h.Patient.Hex(), h.Illness, h.LastPharmacyTime, h.LastTreatmentDays)
	return err
}

func (r *historyRepoPG) List(ctx context.Context, limit, offset int) ([]*IllnessHistory, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM illness_history`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT patient, illness, last_pharmacy_time, last_treatment_days, updated_at
		FROM illness_history ORDER BY patient, illness LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var histories []*IllnessHistory
	for rows.Next() {
		h, err := r.scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		histories = append(histories, h)
	}
	return histories, total, rows.Err()
}
