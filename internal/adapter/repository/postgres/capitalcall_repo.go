package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// CapitalCallRepository implements usecase.CapitalCallRepository.
type CapitalCallRepository struct {
	pool *pgxpool.Pool
}

// NewCapitalCallRepository creates a new CapitalCallRepository.
func NewCapitalCallRepository(pool *pgxpool.Pool) *CapitalCallRepository {
	return &CapitalCallRepository{pool: pool}
}

const capitalCallColumns = `
	id, fund_id, total_amount, call_date,
	fee_rate, fee_base, vat_rate, vat_applicable, fee_period,
	fee_rate_on_nic, fee_rate_on_unfunded, fee_offset,
	status, created_by, metadata, created_at, updated_at`

// Create inserts a new capital call within a transaction.
func (r *CapitalCallRepository) Create(ctx context.Context, tx usecase.Transaction, call *domain.CapitalCall) error {
	pgxTx := tx.(*Tx).PgxTx()

	metadata, err := json.Marshal(call.Metadata)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO capital_calls (`+capitalCallColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		call.ID,
		call.FundID,
		decimalToNumeric(call.TotalAmount),
		timeToPgTimestamptz(call.CallDate),
		decimalToNumeric(call.FeeConfig.Rate),
		string(call.FeeConfig.Base),
		decimalToNumeric(call.FeeConfig.VATRate),
		call.FeeConfig.VATApplicable,
		call.FeeConfig.Period,
		nullableNumeric(call.FeeConfig.FeeRateOnNIC),
		nullableNumeric(call.FeeConfig.FeeRateOnUnfunded),
		decimalToNumeric(call.FeeConfig.FeeOffset),
		string(call.Status),
		call.CreatedBy,
		metadata,
		timeToPgTimestamptz(call.CreatedAt),
		timeToPgTimestamptz(call.UpdatedAt),
	)

	return err
}

// GetByID retrieves a capital call by ID.
func (r *CapitalCallRepository) GetByID(ctx context.Context, id string) (*domain.CapitalCall, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+capitalCallColumns+`
		FROM capital_calls
		WHERE id = $1`, id)

	return scanCapitalCall(row)
}

// GetSnapshotForUpdate locks the row and returns the approval view.
func (r *CapitalCallRepository) GetSnapshotForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ApprovalSnapshot, error) {
	pgxTx := tx.(*Tx).PgxTx()

	snapshot := &domain.ApprovalSnapshot{EntityType: domain.EntityCapitalCall}
	err := pgxTx.QueryRow(ctx, `
		SELECT id, fund_id, status, created_by
		FROM capital_calls
		WHERE id = $1
		FOR UPDATE`, id).Scan(&snapshot.EntityID, &snapshot.FundID, &snapshot.Status, &snapshot.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCapitalCallNotFound
		}
		return nil, err
	}

	return snapshot, nil
}

// UpdateStatus performs the conditional status write. Zero rows affected
// means the persisted status no longer matches and the caller's
// precondition failed.
func (r *CapitalCallRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, expected, next domain.ApprovalStatus, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE capital_calls
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(next), timeToPgTimestamptz(updatedAt), id, string(expected))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrStatusConflict
	}

	return nil
}

// ListByFund retrieves a fund's capital calls, newest first.
func (r *CapitalCallRepository) ListByFund(ctx context.Context, fundID string, limit, offset int) ([]*domain.CapitalCall, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+capitalCallColumns+`
		FROM capital_calls
		WHERE fund_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, fundID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCapitalCalls(rows)
}

// ListApprovedByFund retrieves a fund's approved capital calls in call
// date order.
func (r *CapitalCallRepository) ListApprovedByFund(ctx context.Context, fundID string) ([]*domain.CapitalCall, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+capitalCallColumns+`
		FROM capital_calls
		WHERE fund_id = $1 AND status = $2
		ORDER BY call_date ASC`, fundID, string(domain.StatusApproved))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCapitalCalls(rows)
}

func scanCapitalCalls(rows pgx.Rows) ([]*domain.CapitalCall, error) {
	var calls []*domain.CapitalCall
	for rows.Next() {
		call, err := scanCapitalCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

func scanCapitalCall(row pgx.Row) (*domain.CapitalCall, error) {
	var (
		call         domain.CapitalCall
		totalAmount  pgtype.Numeric
		callDate     pgtype.Timestamptz
		feeRate      pgtype.Numeric
		vatRate      pgtype.Numeric
		rateOnNIC    pgtype.Numeric
		rateOnUnfund pgtype.Numeric
		feeOffset    pgtype.Numeric
		metadataJSON []byte
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	err := row.Scan(
		&call.ID,
		&call.FundID,
		&totalAmount,
		&callDate,
		&feeRate,
		&call.FeeConfig.Base,
		&vatRate,
		&call.FeeConfig.VATApplicable,
		&call.FeeConfig.Period,
		&rateOnNIC,
		&rateOnUnfund,
		&feeOffset,
		&call.Status,
		&call.CreatedBy,
		&metadataJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCapitalCallNotFound
		}
		return nil, err
	}

	call.TotalAmount = numericToDecimal(totalAmount)
	call.CallDate = callDate.Time
	call.FeeConfig.Rate = numericToDecimal(feeRate)
	call.FeeConfig.VATRate = numericToDecimal(vatRate)
	call.FeeConfig.FeeRateOnNIC = numericToDecimalPtr(rateOnNIC)
	call.FeeConfig.FeeRateOnUnfunded = numericToDecimalPtr(rateOnUnfund)
	call.FeeConfig.FeeOffset = numericToDecimal(feeOffset)
	call.CreatedAt = createdAt.Time
	call.UpdatedAt = updatedAt.Time

	if metadataJSON != nil {
		_ = json.Unmarshal(metadataJSON, &call.Metadata)
	}

	return &call, nil
}
