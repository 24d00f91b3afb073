package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/retry"
)

// SQLFixAuditRepository persists records of rewritten SQL queries.
type SQLFixAuditRepository interface {
	// Create inserts a new record. ID and CreatedAt are filled in when unset.
	Create(ctx context.Context, record *models.SQLFixAuditRecord) error

	// ListRecent returns the newest records first.
	ListRecent(ctx context.Context, limit int) ([]*models.SQLFixAuditRecord, error)

	// GetByRequest returns all records written for one request, in batch order.
	GetByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.SQLFixAuditRecord, error)
}

type sqlFixAuditRepository struct {
	pool *pgxpool.Pool
}

// NewSQLFixAuditRepository creates a repository backed by the given pool.
func NewSQLFixAuditRepository(pool *pgxpool.Pool) SQLFixAuditRepository {
	return &sqlFixAuditRepository{pool: pool}
}

var _ SQLFixAuditRepository = (*sqlFixAuditRepository)(nil)

func (r *sqlFixAuditRepository) Create(ctx context.Context, record *models.SQLFixAuditRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	fixes := record.Fixes
	if fixes == nil {
		fixes = []string{}
	}

	query := `
		INSERT INTO sql_fix_audit (
			id, request_id, query_key, source, original_sql, rewritten_sql, fixes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx, query,
			record.ID,
			record.RequestID,
			record.QueryKey,
			record.Source,
			record.OriginalSQL,
			record.RewrittenSQL,
			fixes,
			record.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create sql fix audit record: %w", err)
	}
	return nil
}

func (r *sqlFixAuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.SQLFixAuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, request_id, query_key, source, original_sql, rewritten_sql, fixes, created_at
		FROM sql_fix_audit
		ORDER BY created_at DESC, id
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sql fix audit: %w", err)
	}
	return collectRecords(rows)
}

func (r *sqlFixAuditRepository) GetByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.SQLFixAuditRecord, error) {
	query := `
		SELECT id, request_id, query_key, source, original_sql, rewritten_sql, fixes, created_at
		FROM sql_fix_audit
		WHERE request_id = $1
		ORDER BY created_at, query_key`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sql fix audit by request: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*models.SQLFixAuditRecord, error) {
	defer rows.Close()

	var records []*models.SQLFixAuditRecord
	for rows.Next() {
		var rec models.SQLFixAuditRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.QueryKey,
			&rec.Source,
			&rec.OriginalSQL,
			&rec.RewrittenSQL,
			&rec.Fixes,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sql fix audit record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sql fix audit records: %w", err)
	}
	return records, nil
}
