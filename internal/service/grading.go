package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// gradeScale is ordered from the highest lower bound down; bounds are inclusive.
var gradeScale = []struct {
	min    float64
	bucket models.GradeBucket
}{
	{90, models.GradeBucket{Letter: "A", Points: 4.0}},
	{80, models.GradeBucket{Letter: "B", Points: 3.0}},
	{70, models.GradeBucket{Letter: "C", Points: 2.0}},
	{60, models.GradeBucket{Letter: "D", Points: 1.0}},
}

// GradeFor buckets a percentage score into a letter grade.
func GradeFor(score float64) models.GradeBucket {
	for _, step := range gradeScale {
		if score >= step.min {
			return step.bucket
		}
	}
	return models.GradeBucket{Letter: "F", Points: 0}
}

type submissionStore interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	ListGradedByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	Grade(ctx context.Context, params repository.GradeParams) error
}

// GradingService scores submissions and aggregates grade points.
type GradingService struct {
	submissions  submissionStore
	audit        auditLogger
	notifier     Notifier
	logger       *zap.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewGradingService constructs the service.
func NewGradingService(submissions submissionStore, audit auditLogger, notifier Notifier, logger *zap.Logger, storeTimeout time.Duration) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{
		submissions:  submissions,
		audit:        audit,
		notifier:     notifier,
		logger:       logger,
		storeTimeout: storeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GradeSubmission stores the points and the bucketed grade derived from them.
func (s *GradingService) GradeSubmission(ctx context.Context, actor *models.Actor, submissionID string, req dto.GradeRequest) (*models.Submission, error) {
	if err := requireRole(actor, models.RoleLecturer); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only lecturers can grade submissions")
	}
	if req.Points == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "points are required")
	}
	if math.IsNaN(*req.Points) || math.IsInf(*req.Points, 0) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "points must be a number")
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, storeError(err, "failed to load submission")
	}
	if submission.LecturerID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "course is taught by another lecturer")
	}
	points := *req.Points
	if points < 0 || points > submission.MaxPoints {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("points must be between 0 and %.2f", submission.MaxPoints))
	}

	percentage := 0.0
	if submission.MaxPoints > 0 {
		percentage = points / submission.MaxPoints * 100
	}
	bucket := GradeFor(percentage)
	params := repository.GradeParams{
		ID:       submission.ID,
		Points:   points,
		Grade:    bucket.Letter,
		GPA:      bucket.Points,
		GradedBy: actor.UserID,
		GradedAt: s.now(),
	}
	if err := s.submissions.Grade(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, storeError(err, "failed to grade submission")
	}

	before := *submission
	submission.Points = &params.Points
	submission.Grade = &params.Grade
	submission.GPA = &params.GPA
	submission.GradedBy = &params.GradedBy
	submission.GradedAt = &params.GradedAt

	if s.audit != nil {
		entry := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionGrade,
			Resource:   "submissions",
			ResourceID: &submission.ID,
			IPAddress:  "system",
			UserAgent:  "grading-service",
		}
		entry.OldValues, _ = json.Marshal(before)
		entry.NewValues, _ = json.Marshal(submission)
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(submission.StudentID, fmt.Sprintf("Your submission was graded: %s.", bucket.Letter), models.SeverityInfo)
	}
	return submission, nil
}

// StudentGPA averages the grade points of a student's graded submissions.
func (s *GradingService) StudentGPA(ctx context.Context, actor *models.Actor, studentID string) (*models.StudentGPA, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Is(models.RoleStudent) && actor.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "students can only view their own GPA")
	}
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	submissions, err := s.submissions.ListGradedByStudent(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "failed to load graded submissions")
	}
	return AggregateGPA(studentID, submissions), nil
}

// AggregateGPA averages graded submissions, rounded to two decimals. Ungraded entries are skipped.
func AggregateGPA(studentID string, submissions []models.Submission) *models.StudentGPA {
	result := &models.StudentGPA{StudentID: studentID}
	var total float64
	for _, sub := range submissions {
		if sub.GPA == nil {
			continue
		}
		total += *sub.GPA
		result.Graded++
	}
	if result.Graded > 0 {
		result.GPA = math.Round(total/float64(result.Graded)*100) / 100
	}
	return result
}
