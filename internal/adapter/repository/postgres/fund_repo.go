package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// FundRepository implements usecase.FundRepository.
type FundRepository struct {
	pool *pgxpool.Pool
}

// NewFundRepository creates a new FundRepository.
func NewFundRepository(pool *pgxpool.Pool) *FundRepository {
	return &FundRepository{pool: pool}
}

// GetContext retrieves the fund-level terms snapshot.
func (r *FundRepository) GetContext(ctx context.Context, fundID string) (*domain.FundContext, error) {
	var (
		fund          domain.FundContext
		commitment    pgtype.Numeric
		mgmtFeeRate   pgtype.Numeric
		hurdleRate    pgtype.Numeric
		carryPct      pgtype.Numeric
		catchUpPct    pgtype.Numeric
		mgmtFeeAtExit pgtype.Numeric
		createdAt     pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, currency, total_commitment,
		       management_fee_rate, hurdle_rate, carry_pct, catch_up_pct,
		       management_fee_at_exit, created_at
		FROM funds
		WHERE id = $1`, fundID).Scan(
		&fund.ID,
		&fund.Name,
		&fund.Currency,
		&commitment,
		&mgmtFeeRate,
		&hurdleRate,
		&carryPct,
		&catchUpPct,
		&mgmtFeeAtExit,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFundNotFound
		}
		return nil, err
	}

	fund.TotalCommitment = numericToDecimal(commitment)
	fund.ManagementFeeRate = numericToDecimal(mgmtFeeRate)
	fund.HurdleRate = numericToDecimal(hurdleRate)
	fund.CarryPct = numericToDecimal(carryPct)
	fund.CatchUpPct = numericToDecimal(catchUpPct)
	fund.ManagementFeeAtExit = numericToDecimal(mgmtFeeAtExit)
	fund.CreatedAt = createdAt.Time

	return &fund, nil
}

const ownershipQuery = `
	SELECT investor_id, fund_id, commitment, ownership_pct,
	       fee_discount_pct, vat_exempt, updated_at
	FROM investors
	WHERE fund_id = $1
	ORDER BY investor_id ASC`

// ListOwnership retrieves the fund's investor set.
func (r *FundRepository) ListOwnership(ctx context.Context, fundID string) ([]*domain.InvestorOwnership, error) {
	rows, err := r.pool.Query(ctx, ownershipQuery, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOwnership(rows)
}

// GetOwnershipForUpdate retrieves the investor set with row locks so a
// commitment change and ownership recomputation cannot interleave with
// a concurrent one.
func (r *FundRepository) GetOwnershipForUpdate(ctx context.Context, tx usecase.Transaction, fundID string) ([]*domain.InvestorOwnership, error) {
	pgxTx := tx.(*Tx).PgxTx()

	rows, err := pgxTx.Query(ctx, ownershipQuery+` FOR UPDATE`, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOwnership(rows)
}

// UpdateOwnership writes commitments and recomputed percentages back in
// one batched round trip.
func (r *FundRepository) UpdateOwnership(ctx context.Context, tx usecase.Transaction, investors []*domain.InvestorOwnership) error {
	pgxTx := tx.(*Tx).PgxTx()

	batch := &pgx.Batch{}
	for _, inv := range investors {
		batch.Queue(`
			UPDATE investors
			SET commitment = $1, ownership_pct = $2, updated_at = $3
			WHERE fund_id = $4 AND investor_id = $5`,
			decimalToNumeric(inv.Commitment),
			decimalToNumeric(inv.OwnershipPct),
			timeToPgTimestamptz(inv.UpdatedAt),
			inv.FundID,
			inv.InvestorID,
		)
	}

	results := pgxTx.SendBatch(ctx, batch)
	defer results.Close()

	for range investors {
		tag, err := results.Exec()
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrInvestorNotFound
		}
	}

	return nil
}

func scanOwnership(rows pgx.Rows) ([]*domain.InvestorOwnership, error) {
	var investors []*domain.InvestorOwnership
	for rows.Next() {
		var (
			inv         domain.InvestorOwnership
			commitment  pgtype.Numeric
			pct         pgtype.Numeric
			discountPct pgtype.Numeric
			updatedAt   pgtype.Timestamptz
		)

		err := rows.Scan(
			&inv.InvestorID,
			&inv.FundID,
			&commitment,
			&pct,
			&discountPct,
			&inv.VATExempt,
			&updatedAt,
		)
		if err != nil {
			return nil, err
		}

		inv.Commitment = numericToDecimal(commitment)
		inv.OwnershipPct = numericToDecimal(pct)
		inv.FeeDiscountPct = numericToDecimal(discountPct)
		inv.UpdatedAt = updatedAt.Time

		investors = append(investors, &inv)
	}

	return investors, rows.Err()
}
