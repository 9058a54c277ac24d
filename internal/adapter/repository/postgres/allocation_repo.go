package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// AllocationRepository implements usecase.AllocationRepository.
type AllocationRepository struct {
	pool *pgxpool.Pool
}

// NewAllocationRepository creates a new AllocationRepository.
func NewAllocationRepository(pool *pgxpool.Pool) *AllocationRepository {
	return &AllocationRepository{pool: pool}
}

const allocationColumns = `
	id, entity_type, entity_id, investor_id,
	ownership_pct, commitment, principal,
	gross_fee, fee_discount, net_fee, vat,
	return_of_capital, preferred_return, residual,
	amount_due, amount_paid, status, created_at, updated_at`

// CreateBatch inserts allocations within a transaction using a single
// batched round trip.
func (r *AllocationRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, allocations []*domain.Allocation) error {
	pgxTx := tx.(*Tx).PgxTx()

	batch := &pgx.Batch{}
	for _, a := range allocations {
		batch.Queue(`
			INSERT INTO allocations (`+allocationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			a.ID,
			string(a.EntityType),
			a.EntityID,
			a.InvestorID,
			decimalToNumeric(a.OwnershipPct),
			decimalToNumeric(a.Commitment),
			decimalToNumeric(a.Principal),
			decimalToNumeric(a.GrossFee),
			decimalToNumeric(a.FeeDiscount),
			decimalToNumeric(a.NetFee),
			decimalToNumeric(a.VAT),
			decimalToNumeric(a.ReturnOfCapital),
			decimalToNumeric(a.PreferredReturn),
			decimalToNumeric(a.Residual),
			decimalToNumeric(a.AmountDue),
			decimalToNumeric(a.AmountPaid),
			string(a.Status),
			timeToPgTimestamptz(a.CreatedAt),
			timeToPgTimestamptz(a.UpdatedAt),
		)
	}

	results := pgxTx.SendBatch(ctx, batch)
	defer results.Close()

	for range allocations {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// ListByEntity retrieves all allocations for one capital call or
// distribution.
func (r *AllocationRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.Allocation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+allocationColumns+`
		FROM allocations
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY investor_id ASC`, string(entityType), entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []*domain.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}

	return allocations, rows.Err()
}

// AddPayment adds a payment to the current paid amount and derives the
// resulting status, all in one statement. Concurrent payments against
// the same allocation therefore accumulate instead of overwriting each
// other.
func (r *AllocationRepository) AddPayment(ctx context.Context, tx usecase.Transaction, id string, amount decimal.Decimal, updatedAt time.Time) (*domain.Allocation, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		UPDATE allocations
		SET amount_paid = amount_paid + $1,
		    status = CASE WHEN amount_paid + $1 >= amount_due THEN 'paid' ELSE 'partial' END,
		    updated_at = $2
		WHERE id = $3
		RETURNING `+allocationColumns,
		decimalToNumeric(amount), timeToPgTimestamptz(updatedAt), id)

	a, err := scanAllocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAllocationNotFound
		}
		return nil, err
	}

	return a, nil
}

// SumFeesByFund totals net fees plus VAT across all capital call
// allocations of a fund. Used by the net IRR approximation.
func (r *AllocationRepository) SumFeesByFund(ctx context.Context, fundID string) (decimal.Decimal, error) {
	var total pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(a.net_fee + a.vat), 0)
		FROM allocations a
		JOIN capital_calls c ON c.id = a.entity_id
		WHERE a.entity_type = $1 AND c.fund_id = $2`,
		string(domain.EntityCapitalCall), fundID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(total), nil
}

func scanAllocation(row pgx.Row) (*domain.Allocation, error) {
	var (
		a            domain.Allocation
		ownershipPct pgtype.Numeric
		commitment   pgtype.Numeric
		principal    pgtype.Numeric
		grossFee     pgtype.Numeric
		feeDiscount  pgtype.Numeric
		netFee       pgtype.Numeric
		vat          pgtype.Numeric
		roc          pgtype.Numeric
		pref         pgtype.Numeric
		residual     pgtype.Numeric
		amountDue    pgtype.Numeric
		amountPaid   pgtype.Numeric
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	err := row.Scan(
		&a.ID,
		&a.EntityType,
		&a.EntityID,
		&a.InvestorID,
		&ownershipPct,
		&commitment,
		&principal,
		&grossFee,
		&feeDiscount,
		&netFee,
		&vat,
		&roc,
		&pref,
		&residual,
		&amountDue,
		&amountPaid,
		&a.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAllocationNotFound
		}
		return nil, err
	}

	a.OwnershipPct = numericToDecimal(ownershipPct)
	a.Commitment = numericToDecimal(commitment)
	a.Principal = numericToDecimal(principal)
	a.GrossFee = numericToDecimal(grossFee)
	a.FeeDiscount = numericToDecimal(feeDiscount)
	a.NetFee = numericToDecimal(netFee)
	a.VAT = numericToDecimal(vat)
	a.ReturnOfCapital = numericToDecimal(roc)
	a.PreferredReturn = numericToDecimal(pref)
	a.Residual = numericToDecimal(residual)
	a.AmountDue = numericToDecimal(amountDue)
	a.AmountPaid = numericToDecimal(amountPaid)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}
