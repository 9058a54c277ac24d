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

// DistributionRepository implements usecase.DistributionRepository.
type DistributionRepository struct {
	pool *pgxpool.Pool
}

// NewDistributionRepository creates a new DistributionRepository.
func NewDistributionRepository(pool *pgxpool.Pool) *DistributionRepository {
	return &DistributionRepository{pool: pool}
}

const distributionColumns = `
	id, fund_id, total_amount, distribution_date, source,
	waterfall_applied, return_of_capital, preferred_return,
	gp_catch_up, residual_split, lp_total, gp_total,
	status, created_by, metadata, created_at, updated_at`

// Create inserts a new distribution within a transaction.
func (r *DistributionRepository) Create(ctx context.Context, tx usecase.Transaction, dist *domain.Distribution) error {
	pgxTx := tx.(*Tx).PgxTx()

	metadata, err := json.Marshal(dist.Metadata)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO distributions (`+distributionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		dist.ID,
		dist.FundID,
		decimalToNumeric(dist.TotalAmount),
		timeToPgTimestamptz(dist.DistributionDate),
		dist.Source,
		dist.WaterfallApplied,
		decimalToNumeric(dist.ReturnOfCapital),
		decimalToNumeric(dist.PreferredReturn),
		decimalToNumeric(dist.GPCatchUp),
		decimalToNumeric(dist.ResidualSplit),
		decimalToNumeric(dist.LPTotal),
		decimalToNumeric(dist.GPTotal),
		string(dist.Status),
		dist.CreatedBy,
		metadata,
		timeToPgTimestamptz(dist.CreatedAt),
		timeToPgTimestamptz(dist.UpdatedAt),
	)

	return err
}

// GetByID retrieves a distribution by ID.
func (r *DistributionRepository) GetByID(ctx context.Context, id string) (*domain.Distribution, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+distributionColumns+`
		FROM distributions
		WHERE id = $1`, id)

	return scanDistribution(row)
}

// GetByIDForUpdate retrieves a distribution with a FOR UPDATE lock.
func (r *DistributionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Distribution, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+distributionColumns+`
		FROM distributions
		WHERE id = $1
		FOR UPDATE`, id)

	return scanDistribution(row)
}

// GetSnapshotForUpdate locks the row and returns the approval view.
func (r *DistributionRepository) GetSnapshotForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ApprovalSnapshot, error) {
	pgxTx := tx.(*Tx).PgxTx()

	snapshot := &domain.ApprovalSnapshot{EntityType: domain.EntityDistribution}
	err := pgxTx.QueryRow(ctx, `
		SELECT id, fund_id, status, created_by
		FROM distributions
		WHERE id = $1
		FOR UPDATE`, id).Scan(&snapshot.EntityID, &snapshot.FundID, &snapshot.Status, &snapshot.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDistributionNotFound
		}
		return nil, err
	}

	return snapshot, nil
}

// UpdateStatus performs the conditional status write.
func (r *DistributionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, expected, next domain.ApprovalStatus, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE distributions
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

// ListByFund retrieves a fund's distributions, newest first.
func (r *DistributionRepository) ListByFund(ctx context.Context, fundID string, limit, offset int) ([]*domain.Distribution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+distributionColumns+`
		FROM distributions
		WHERE fund_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, fundID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDistributions(rows)
}

// ListApprovedByFund retrieves a fund's approved distributions in
// distribution date order.
func (r *DistributionRepository) ListApprovedByFund(ctx context.Context, fundID string) ([]*domain.Distribution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+distributionColumns+`
		FROM distributions
		WHERE fund_id = $1 AND status = $2
		ORDER BY distribution_date ASC`, fundID, string(domain.StatusApproved))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDistributions(rows)
}

// ListAppliedByFund retrieves distributions whose waterfall has run, in
// distribution date order.
func (r *DistributionRepository) ListAppliedByFund(ctx context.Context, fundID string) ([]*domain.Distribution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+distributionColumns+`
		FROM distributions
		WHERE fund_id = $1 AND waterfall_applied = TRUE
		ORDER BY distribution_date ASC`, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDistributions(rows)
}

// ApplyWaterfall persists tier amounts and flips the applied flag. The
// flag is part of the WHERE clause so a concurrent second apply affects
// zero rows and surfaces as ErrWaterfallApplied.
func (r *DistributionRepository) ApplyWaterfall(ctx context.Context, tx usecase.Transaction, dist *domain.Distribution, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE distributions
		SET waterfall_applied = TRUE,
		    return_of_capital = $1,
		    preferred_return = $2,
		    gp_catch_up = $3,
		    residual_split = $4,
		    lp_total = $5,
		    gp_total = $6,
		    updated_at = $7
		WHERE id = $8 AND waterfall_applied = FALSE`,
		decimalToNumeric(dist.ReturnOfCapital),
		decimalToNumeric(dist.PreferredReturn),
		decimalToNumeric(dist.GPCatchUp),
		decimalToNumeric(dist.ResidualSplit),
		decimalToNumeric(dist.LPTotal),
		decimalToNumeric(dist.GPTotal),
		timeToPgTimestamptz(updatedAt),
		dist.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrWaterfallApplied
	}

	return nil
}

func scanDistributions(rows pgx.Rows) ([]*domain.Distribution, error) {
	var dists []*domain.Distribution
	for rows.Next() {
		dist, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		dists = append(dists, dist)
	}
	return dists, rows.Err()
}

func scanDistribution(row pgx.Row) (*domain.Distribution, error) {
	var (
		dist         domain.Distribution
		totalAmount  pgtype.Numeric
		distDate     pgtype.Timestamptz
		roc          pgtype.Numeric
		pref         pgtype.Numeric
		catchUp      pgtype.Numeric
		residual     pgtype.Numeric
		lpTotal      pgtype.Numeric
		gpTotal      pgtype.Numeric
		metadataJSON []byte
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	err := row.Scan(
		&dist.ID,
		&dist.FundID,
		&totalAmount,
		&distDate,
		&dist.Source,
		&dist.WaterfallApplied,
		&roc,
		&pref,
		&catchUp,
		&residual,
		&lpTotal,
		&gpTotal,
		&dist.Status,
		&dist.CreatedBy,
		&metadataJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDistributionNotFound
		}
		return nil, err
	}

	dist.TotalAmount = numericToDecimal(totalAmount)
	dist.DistributionDate = distDate.Time
	dist.ReturnOfCapital = numericToDecimal(roc)
	dist.PreferredReturn = numericToDecimal(pref)
	dist.GPCatchUp = numericToDecimal(catchUp)
	dist.ResidualSplit = numericToDecimal(residual)
	dist.LPTotal = numericToDecimal(lpTotal)
	dist.GPTotal = numericToDecimal(gpTotal)
	dist.CreatedAt = createdAt.Time
	dist.UpdatedAt = updatedAt.Time

	if metadataJSON != nil {
		_ = json.Unmarshal(metadataJSON, &dist.Metadata)
	}

	return &dist, nil
}
