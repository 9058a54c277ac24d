package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// ApprovalHistoryRepository implements usecase.ApprovalHistoryRepository.
// The table is append-only; there are no update or delete paths.
type ApprovalHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalHistoryRepository creates a new ApprovalHistoryRepository.
func NewApprovalHistoryRepository(pool *pgxpool.Pool) *ApprovalHistoryRepository {
	return &ApprovalHistoryRepository{pool: pool}
}

const historyColumns = `
	id, entity_type, entity_id, action,
	from_status, to_status, actor_id, actor_role,
	note, metadata, created_at`

// CreateTx appends a history entry within the caller's transaction so
// the entry commits or rolls back together with the status write.
func (r *ApprovalHistoryRepository) CreateTx(ctx context.Context, tx usecase.Transaction, entry *domain.ApprovalHistoryEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
	}

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO approval_history (`+historyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID,
		string(entry.EntityType),
		entry.EntityID,
		string(entry.Action),
		string(entry.FromStatus),
		string(entry.ToStatus),
		entry.ActorID,
		string(entry.ActorRole),
		entry.Note,
		metadata,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// GetByEntity retrieves one entity's history in chronological order.
func (r *ApprovalHistoryRepository) GetByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.ApprovalHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM approval_history
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC`, string(entityType), entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHistoryEntries(rows)
}

// List retrieves history entries matching the filter, newest first.
func (r *ApprovalHistoryRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.ApprovalHistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM approval_history WHERE 1=1`
	args := []any{}

	if filter.EntityType != "" {
		args = append(args, string(filter.EntityType))
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, timeToPgTimestamptz(*filter.StartDate))
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, timeToPgTimestamptz(*filter.EndDate))
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHistoryEntries(rows)
}

func scanHistoryEntries(rows pgx.Rows) ([]*domain.ApprovalHistoryEntry, error) {
	var entries []*domain.ApprovalHistoryEntry
	for rows.Next() {
		var (
			entry        domain.ApprovalHistoryEntry
			metadataJSON []byte
			createdAt    pgtype.Timestamptz
		)

		err := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Action,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.Note,
			&metadataJSON,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}

		entry.CreatedAt = createdAt.Time
		if metadataJSON != nil {
			_ = json.Unmarshal(metadataJSON, &entry.Metadata)
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
