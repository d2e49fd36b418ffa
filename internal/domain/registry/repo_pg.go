package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
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

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const claimCols = `id, patient, province, hospital_name,
	illness, doctor_name, medicines, medicine_amounts, treatment_days,
	prescription_hash, hospital_signature,
	pharmacy_confirmed, pharmacy_name, pharmacy_operator, pharmacy_confirmed_at,
	approved, status, created_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	var patient string
	var illness, doctorName *string
	var medicines []string
	var amounts []int64
	var treatmentDays *int
	var prescriptionHash, hospitalSignature []byte

	err := row.Scan(&c.ID, &patient, &c.Province, &c.HospitalName,
		&illness, &doctorName, &medicines, &amounts, &treatmentDays,
		&prescriptionHash, &hospitalSignature,
		&c.PharmacyConfirmed, &c.PharmacyName, &c.PharmacyOperator, &c.PharmacyConfirmedAt,
		&c.Approved, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}

	c.Patient = common.HexToAddress(patient)
	if illness != nil {
		c.Hospital = &HospitalData{
			Illness:           *illness,
			Medicines:         medicines,
			MedicineAmounts:   amounts,
			PrescriptionHash:  prescriptionHash,
			HospitalSignature: hospitalSignature,
		}
		if doctorName != nil {
			c.Hospital.DoctorName = *doctorName
		}
		if treatmentDays != nil {
			c.Hospital.TreatmentDays = *treatmentDays
		}
	}
	return &c, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claims (id, patient, province, hospital_name, pharmacy_confirmed, approved, status)
		VALUES ($1, $2, $3, $4, FALSE, FALSE, $5)`,
		c.ID, c.Patient.Hex(), c.Province, c.HospitalName, c.Status)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+` FROM claims WHERE id = $1`, id))
}

func (r *claimRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+` FROM claims WHERE id = $1 FOR UPDATE`, id))
}

func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	var illness, doctorName *string
	var medicines []string
	var amounts []int64
	var treatmentDays *int
	var prescriptionHash, hospitalSignature []byte
	if c.Hospital != nil {
		illness = &c.Hospital.Illness
		doctorName = &c.Hospital.DoctorName
		medicines = c.Hospital.Medicines
		amounts = c.Hospital.MedicineAmounts
		treatmentDays = &c.Hospital.TreatmentDays
		prescriptionHash = c.Hospital.PrescriptionHash
		hospitalSignature = c.Hospital.HospitalSignature
	}

	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE claims SET
			illness = $2, doctor_name = $3, medicines = $4, medicine_amounts = $5,
			treatment_days = $6, prescription_hash = $7, hospital_signature = $8,
			pharmacy_confirmed = $9, pharmacy_name = $10, pharmacy_operator = $11,
			pharmacy_confirmed_at = $12, approved = $13, status = $14, updated_at = NOW()
		WHERE id = $1`,
		c.ID, illness, doctorName, medicines, amounts,
		treatmentDays, prescriptionHash, hospitalSignature,
		c.PharmacyConfirmed, c.PharmacyName, c.PharmacyOperator,
		c.PharmacyConfirmedAt, c.Approved, c.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimNotFound
	}
	return nil
}

func (r *claimRepoPG) List(ctx context.Context, filter ClaimFilter, limit, offset int) ([]*Claim, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	i := 1
	if filter.Patient != nil {
		where += fmt.Sprintf(" AND patient = $%d", i)
		args = append(args, filter.Patient.Hex())
		i++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", i)
		args = append(args, *filter.Status)
		i++
	}
	if filter.HospitalName != nil {
		where += fmt.Sprintf(" AND hospital_name = $%d", i)
		args = append(args, *filter.HospitalName)
		i++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claims`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + claimCols + ` FROM claims` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var claims []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		claims = append(claims, c)
	}
	return claims, total, rows.Err()
}

// =========== Used-Signature Repository ===========

type usedSignatureRepoPG struct{ pool *pgxpool.Pool }

func NewUsedSignatureRepoPG(pool *pgxpool.Pool) UsedSignatureRepository {
	return &usedSignatureRepoPG{pool: pool}
}

func (r *usedSignatureRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *usedSignatureRepoPG) Consume(ctx context.Context, fingerprint []byte) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO used_signatures (fingerprint) VALUES ($1)
		ON CONFLICT (fingerprint) DO NOTHING`, fingerprint)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSignatureReplay
	}
	return nil
}
