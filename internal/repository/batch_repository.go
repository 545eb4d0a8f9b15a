package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const batchColumns = `id, submitter_id, member_record_ids, status, amount, attachment_url, note,
       reviewer_id, reviewer_feedback, submitted_at, reviewed_at`

// BatchRepository persists approval batches. Each kind lives in its own table.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func batchTable(kind models.BatchKind) (string, error) {
	table := kind.Table()
	if table == "" {
		return "", fmt.Errorf("unknown batch kind %q", kind)
	}
	return table, nil
}

// Create inserts a new batch using the provided executor.
func (r *BatchRepository) Create(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	table, err := batchTable(batch.Kind)
	if err != nil {
		return err
	}
	if exec == nil {
		exec = r.db
	}
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusPending
	}
	if batch.SubmittedAt.IsZero() {
		batch.SubmittedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO %s
	(id, submitter_id, member_record_ids, status, amount, attachment_url, note, reviewer_id, reviewer_feedback, submitted_at, reviewed_at)
	VALUES (:id, :submitter_id, :member_record_ids, :status, :amount, :attachment_url, :note, :reviewer_id, :reviewer_feedback, :submitted_at, :reviewed_at)`, table)
	if _, err := sqlx.NamedExecContext(ctx, exec, query, batch); err != nil {
		return fmt.Errorf("create %s batch: %w", batch.Kind, err)
	}
	return nil
}

// GetByID fetches a batch of the given kind.
func (r *BatchRepository) GetByID(ctx context.Context, kind models.BatchKind, id string) (*models.Batch, error) {
	table, err := batchTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, batchColumns, table)
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	batch.Kind = kind
	return &batch, nil
}

// List returns batches matching the filter, latest first, with the total count.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error) {
	table, err := batchTable(filter.Kind)
	if err != nil {
		return nil, 0, err
	}
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SubmitterID != "" {
		args = append(args, filter.SubmitterID)
		conditions = append(conditions, fmt.Sprintf("submitter_id = $%d", len(args)))
	}
	if filter.MemberID != "" {
		args = append(args, filter.MemberID)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(member_record_ids)", len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count %s batches: %w", filter.Kind, err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY submitted_at DESC LIMIT %d OFFSET %d", batchColumns, table, clause, limit, offset)

	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s batches: %w", filter.Kind, err)
	}
	for i := range batches {
		batches[i].Kind = filter.Kind
	}
	return batches, total, nil
}

// ExistsPending reports whether the submitter already has a pending batch referencing member.
func (r *BatchRepository) ExistsPending(ctx context.Context, kind models.BatchKind, submitterID, memberID string) (bool, error) {
	table, err := batchTable(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE submitter_id = $1 AND $2 = ANY(member_record_ids) AND status = $3)`, table)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, submitterID, memberID, models.BatchStatusPending); err != nil {
		return false, fmt.Errorf("check pending %s batch: %w", kind, err)
	}
	return exists, nil
}

// TransitionIf moves a batch from the expected status to the target one.
// It reports false when the row no longer holds the expected status.
func (r *BatchRepository) TransitionIf(ctx context.Context, exec sqlx.ExtContext, t models.BatchTransition) (bool, error) {
	table, err := batchTable(t.Kind)
	if err != nil {
		return false, err
	}
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`UPDATE %s SET status = $1, reviewer_id = $2, reviewer_feedback = $3, reviewed_at = $4
	WHERE id = $5 AND status = $6`, table)
	result, err := exec.ExecContext(ctx, query, t.To, t.ReviewerID, t.Feedback, t.ReviewedAt, t.ID, t.From)
	if err != nil {
		return false, fmt.Errorf("transition %s batch: %w", t.Kind, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check %s batch transition rows: %w", t.Kind, err)
	}
	return rows > 0, nil
}
