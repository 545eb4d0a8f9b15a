package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type enrollmentWriter interface {
	Enroll(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
}

// EnrollmentEffect creates the active enrollment of an approved request.
type EnrollmentEffect struct {
	courses enrollmentWriter
}

// NewEnrollmentEffect constructs the effect.
func NewEnrollmentEffect(courses enrollmentWriter) *EnrollmentEffect {
	return &EnrollmentEffect{courses: courses}
}

// Apply implements BatchEffect.
func (e *EnrollmentEffect) Apply(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	courseID := batch.FirstMember()
	if courseID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment request has no course")
	}
	enrollment := &models.Enrollment{
		StudentID: batch.SubmitterID,
		CourseID:  courseID,
		Status:    models.EnrollmentActive,
	}
	if err := e.courses.Enroll(ctx, exec, enrollment); err != nil {
		return appErrors.Store(err, "failed to create enrollment")
	}
	return nil
}

type feeLedger interface {
	ApplyPayment(ctx context.Context, exec sqlx.ExtContext, accountID string, amount float64, at time.Time) error
}

// FeePaymentEffect credits an approved payment to its fee account.
type FeePaymentEffect struct {
	fees feeLedger
	now  func() time.Time
}

// NewFeePaymentEffect constructs the effect.
func NewFeePaymentEffect(fees feeLedger) *FeePaymentEffect {
	return &FeePaymentEffect{fees: fees, now: func() time.Time { return time.Now().UTC() }}
}

// Apply implements BatchEffect.
func (e *FeePaymentEffect) Apply(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	if batch.Amount == nil || *batch.Amount <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "payment amount must be positive")
	}
	if err := e.fees.ApplyPayment(ctx, exec, batch.FirstMember(), *batch.Amount, e.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee account not found")
		}
		return appErrors.Store(err, "failed to credit fee account")
	}
	return nil
}
