package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const submissionColumns = `s.id, s.assignment_id, s.student_id, s.attachment_url, s.points, s.grade, s.gpa,
       s.graded_by, s.graded_at, s.submitted_at, a.max_points, a.course_id, c.lecturer_id`

const submissionJoins = `submissions s JOIN assignments a ON a.id = s.assignment_id JOIN courses c ON c.id = a.course_id`

// SubmissionRepository persists assignment submissions and their grades.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID returns a submission with its assignment's max points and the course lecturer.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE s.id = $1`, submissionColumns, submissionJoins)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListGradedByStudent returns graded submissions for a student.
func (r *SubmissionRepository) ListGradedByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
	WHERE s.student_id = $1 AND s.gpa IS NOT NULL ORDER BY s.graded_at`, submissionColumns, submissionJoins)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, studentID); err != nil {
		return nil, fmt.Errorf("list graded submissions: %w", err)
	}
	return submissions, nil
}

// GradeParams groups the columns written when grading.
type GradeParams struct {
	ID       string
	Points   float64
	Grade    string
	GPA      float64
	GradedBy string
	GradedAt time.Time
}

// Grade stores the score and bucketed grade of a submission.
func (r *SubmissionRepository) Grade(ctx context.Context, params GradeParams) error {
	const query = `UPDATE submissions SET points = $2, grade = $3, gpa = $4, graded_by = $5, graded_at = $6 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, params.ID, params.Points, params.Grade, params.GPA, params.GradedBy, params.GradedAt)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check grade rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
