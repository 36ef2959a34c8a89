package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// StatusHistoryRepository reads the append-only audit trail. Writes happen
// inside complaint transactions; see ComplaintRepository.
type StatusHistoryRepository interface {
	ListByComplaint(ctx context.Context, complaintID int64) ([]domain.StatusHistory, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) ListByComplaint(ctx context.Context, complaintID int64) ([]domain.StatusHistory, error) {
	const query = `
        SELECT id, complaint_id, old_status, new_status, notes, changed_by, created_at
        FROM complaint_status_history WHERE complaint_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistory
	for rows.Next() {
		var entry domain.StatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ComplaintID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.Notes,
			&entry.ChangedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
