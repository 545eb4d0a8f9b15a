package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// AttendanceRepository persists attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CreateMany inserts records through exec, assigning ids in order.
func (r *AttendanceRepository) CreateMany(ctx context.Context, exec sqlx.ExtContext, records []models.AttendanceRecord) error {
	if exec == nil {
		exec = r.db
	}
	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		const query = `INSERT INTO attendance (id, course_id, student_id, lecturer_id, date, status, created_at)
		VALUES (:id, :course_id, :student_id, :lecturer_id, :date, :status, :created_at)`
		if _, err := sqlx.NamedExecContext(ctx, exec, query, &records[i]); err != nil {
			return fmt.Errorf("insert attendance: %w", err)
		}
	}
	return nil
}

// ListByIDs returns records in the order of ids; unknown ids are skipped.
func (r *AttendanceRepository) ListByIDs(ctx context.Context, ids []string) ([]models.AttendanceRecord, error) {
	if len(ids) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	const query = `SELECT id, course_id, student_id, lecturer_id, date, status, created_at
	FROM attendance WHERE id = ANY($1) ORDER BY array_position($1, id::text)`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, pq.StringArray(ids)); err != nil {
		return nil, fmt.Errorf("list attendance by ids: %w", err)
	}
	return records, nil
}
