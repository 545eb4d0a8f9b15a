package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type enrollmentChecker interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	HasActiveEnrollment(ctx context.Context, studentID, courseID string) (bool, error)
}

// EnrollmentService files course enrollment requests.
type EnrollmentService struct {
	courses      enrollmentChecker
	approvals    *ApprovalService
	validate     *validator.Validate
	storeTimeout time.Duration
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(courses enrollmentChecker, approvals *ApprovalService, validate *validator.Validate, storeTimeout time.Duration) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{courses: courses, approvals: approvals, validate: validate, storeTimeout: storeTimeout}
}

// RequestEnrollment creates a pending enrollment request for the student.
func (s *EnrollmentService) RequestEnrollment(ctx context.Context, actor *models.Actor, req dto.EnrollmentRequest) (*models.Batch, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only students can request enrollment")
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	lookupCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if _, err := s.courses.FindByID(lookupCtx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, storeError(err, "failed to load course")
	}
	enrolled, err := s.courses.HasActiveEnrollment(lookupCtx, actor.UserID, req.CourseID)
	if err != nil {
		return nil, storeError(err, "failed to check enrollment")
	}
	if enrolled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "already enrolled in this course")
	}
	pending, err := s.approvals.ExistsPending(ctx, actor, models.BatchKindEnrollment, req.CourseID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "an enrollment request for this course is already pending")
	}

	return s.approvals.CreateBatch(ctx, actor, CreateBatchInput{
		Kind:            models.BatchKindEnrollment,
		MemberRecordIDs: []string{req.CourseID},
	})
}
