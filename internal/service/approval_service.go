package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type batchStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error
	GetByID(ctx context.Context, kind models.BatchKind, id string) (*models.Batch, error)
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error)
	ExistsPending(ctx context.Context, kind models.BatchKind, submitterID, memberID string) (bool, error)
	TransitionIf(ctx context.Context, exec sqlx.ExtContext, t models.BatchTransition) (bool, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Notifier surfaces outcomes to users without blocking the caller.
type Notifier interface {
	Notify(userID, message string, severity models.Severity)
}

type reviewRecorder interface {
	RecordReview(kind, decision string)
}

// BatchEffect applies the side effect of an approved batch inside the review transaction.
type BatchEffect interface {
	Apply(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error
}

// BatchEffectFunc allows using plain functions.
type BatchEffectFunc func(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error

// Apply implements BatchEffect.
func (f BatchEffectFunc) Apply(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	return f(ctx, exec, batch)
}

// CreateBatchInput describes a new batch.
type CreateBatchInput struct {
	Kind            models.BatchKind
	MemberRecordIDs []string
	Amount          *float64
	AttachmentURL   *string
	Note            *string
}

// ApprovalService aggregates records into batches and drives the review state machine.
type ApprovalService struct {
	batches      batchStore
	tx           txRunner
	audit        auditLogger
	notifier     Notifier
	metrics      reviewRecorder
	effects      map[models.BatchKind]BatchEffect
	logger       *zap.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithBatchEffects registers approval side effects keyed by kind.
func WithBatchEffects(effects map[models.BatchKind]BatchEffect) ApprovalServiceOption {
	return func(s *ApprovalService) {
		for k, v := range effects {
			if v != nil {
				s.effects[k] = v
			}
		}
	}
}

// WithNotifier sets the notifier informed about review outcomes.
func WithNotifier(n Notifier) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithReviewMetrics records review outcomes.
func WithReviewMetrics(m reviewRecorder) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithStoreTimeout bounds each record store call.
func WithStoreTimeout(d time.Duration) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.storeTimeout = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewApprovalService constructs the service with defaults.
func NewApprovalService(batches batchStore, tx txRunner, audit auditLogger, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApprovalService{
		batches:      batches,
		tx:           tx,
		audit:        audit,
		logger:       logger,
		effects:      make(map[models.BatchKind]BatchEffect),
		storeTimeout: 5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// ValidateMembers checks the member shape required by a batch kind.
func ValidateMembers(kind models.BatchKind, members []string, amount *float64) error {
	if !kind.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported batch kind: %s", kind))
	}
	seen := make(map[string]struct{}, len(members))
	for _, id := range members {
		if strings.TrimSpace(id) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "member record ids must not be blank")
		}
		if _, dup := seen[id]; dup {
			return appErrors.Clone(appErrors.ErrValidation, "member record ids must be unique")
		}
		seen[id] = struct{}{}
	}
	switch kind {
	case models.BatchKindAttendance:
		if len(members) < 1 {
			return appErrors.Clone(appErrors.ErrValidation, "attendance batch needs at least one record")
		}
	case models.BatchKindEnrollment, models.BatchKindHostel:
		if len(members) != 1 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s batch references exactly one record", kind))
		}
	case models.BatchKindFee:
		if len(members) != 1 {
			return appErrors.Clone(appErrors.ErrValidation, "fee batch references exactly one fee account")
		}
		if amount == nil || !validAmount(*amount) {
			return appErrors.Clone(appErrors.ErrValidation, "payment amount must be a positive number")
		}
	}
	return nil
}

// CreateBatch persists a new pending batch for the actor.
func (s *ApprovalService) CreateBatch(ctx context.Context, actor *models.Actor, input CreateBatchInput) (*models.Batch, error) {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	batch, err := s.CreateBatchTx(ctx, nil, actor, input)
	if err != nil {
		return nil, err
	}
	s.RecordSubmitted(ctx, actor, batch)
	return batch, nil
}

// CreateBatchTx persists a batch through exec so callers can group it with its member rows.
// It writes no audit entry; callers record one with RecordSubmitted once their transaction commits.
func (s *ApprovalService) CreateBatchTx(ctx context.Context, exec sqlx.ExtContext, actor *models.Actor, input CreateBatchInput) (*models.Batch, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := ValidateMembers(input.Kind, input.MemberRecordIDs, input.Amount); err != nil {
		return nil, err
	}
	batch := &models.Batch{
		Kind:            input.Kind,
		SubmitterID:     actor.UserID,
		MemberRecordIDs: append(pq.StringArray(nil), input.MemberRecordIDs...),
		Status:          models.BatchStatusPending,
		Amount:          input.Amount,
		AttachmentURL:   input.AttachmentURL,
		Note:            input.Note,
		SubmittedAt:     s.now(),
	}
	if err := s.batches.Create(ctx, exec, batch); err != nil {
		return nil, storeError(err, fmt.Sprintf("failed to create %s batch", input.Kind))
	}
	return batch, nil
}

// RecordSubmitted writes the submit audit entry for a persisted batch.
func (s *ApprovalService) RecordSubmitted(ctx context.Context, actor *models.Actor, batch *models.Batch) {
	if actor == nil || batch == nil {
		return
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionBatchSubmit, batch, nil)
}

// ExistsPending reports whether the actor already awaits review on member.
func (s *ApprovalService) ExistsPending(ctx context.Context, actor *models.Actor, kind models.BatchKind, memberID string) (bool, error) {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	exists, err := s.batches.ExistsPending(ctx, kind, actor.UserID, memberID)
	if err != nil {
		return false, storeError(err, "failed to check pending batches")
	}
	return exists, nil
}

// ParseDecision accepts only terminal review outcomes.
func ParseDecision(raw string) (models.BatchStatus, error) {
	switch models.BatchStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case models.BatchStatusApproved:
		return models.BatchStatusApproved, nil
	case models.BatchStatusRejected:
		return models.BatchStatusRejected, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "decision must be approved or rejected")
	}
}

// Review applies an admin decision. Approval runs the kind's side effect in the same
// transaction as the status change; a failing effect leaves the batch pending.
func (s *ApprovalService) Review(ctx context.Context, actor *models.Actor, kind models.BatchKind, id string, req dto.ReviewRequest) (*models.Batch, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only admins can review batches")
	}
	decision, err := ParseDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	if len(req.Feedback) > 2000 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "feedback is too long")
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	batch, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(kind, batch.Status, decision) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("batch is already %s", batch.Status))
	}

	reviewer := actor.UserID
	now := s.now()
	transition := models.BatchTransition{
		Kind:       kind,
		ID:         batch.ID,
		From:       models.BatchStatusPending,
		To:         decision,
		ReviewerID: &reviewer,
		Feedback:   optionalString(req.Feedback),
		ReviewedAt: &now,
	}
	effect := s.effects[kind]
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		ok, err := s.batches.TransitionIf(ctx, exec, transition)
		if err != nil {
			return storeError(err, "failed to update batch status")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrInvalidState, "batch was already reviewed")
		}
		if decision == models.BatchStatusApproved && effect != nil {
			if err := effect.Apply(ctx, exec, batch); err != nil {
				return storeError(err, fmt.Sprintf("failed to apply %s approval", kind))
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("batch review failed",
			zap.String("kind", string(kind)),
			zap.String("batch_id", batch.ID),
			zap.String("decision", string(decision)),
			zap.Error(err))
		return nil, storeError(err, "failed to review batch")
	}

	before := *batch
	batch.Status = decision
	batch.ReviewerID = transition.ReviewerID
	batch.ReviewerFeedback = transition.Feedback
	batch.ReviewedAt = transition.ReviewedAt

	if s.metrics != nil {
		s.metrics.RecordReview(string(kind), string(decision))
	}
	s.emitAudit(ctx, reviewer, models.AuditActionBatchReview, batch, &before)
	s.notify(batch)
	return batch, nil
}

// Cancel withdraws a pending batch on behalf of its submitter. Only hostel bookings
// allow the transition; other kinds fail with INVALID_STATE. Reviewer columns stay empty.
func (s *ApprovalService) Cancel(ctx context.Context, actor *models.Actor, kind models.BatchKind, id string) (*models.Batch, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	batch, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if batch.SubmitterID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only the submitter can cancel a batch")
	}
	if !models.CanTransition(kind, batch.Status, models.BatchStatusCancelled) {
		if batch.Status == models.BatchStatusPending {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("%s batches cannot be cancelled", kind))
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("batch is already %s", batch.Status))
	}

	transition := models.BatchTransition{
		Kind: kind,
		ID:   batch.ID,
		From: models.BatchStatusPending,
		To:   models.BatchStatusCancelled,
	}
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		ok, err := s.batches.TransitionIf(ctx, exec, transition)
		if err != nil {
			return storeError(err, "failed to cancel booking")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrInvalidState, "booking was already reviewed")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to cancel booking")
	}

	before := *batch
	batch.Status = models.BatchStatusCancelled
	s.emitAudit(ctx, actor.UserID, models.AuditActionBatchCancel, batch, &before)
	return batch, nil
}

// List returns batches visible to the actor: admins see all, others only their own.
func (s *ApprovalService) List(ctx context.Context, actor *models.Actor, kind models.BatchKind, query dto.BatchQuery) ([]models.Batch, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if !kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported batch kind: %s", kind))
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	filter := models.BatchFilter{Kind: kind, Limit: size, Offset: (page - 1) * size}
	for _, raw := range query.Status {
		status := models.BatchStatus(strings.ToLower(strings.TrimSpace(raw)))
		switch status {
		case models.BatchStatusPending, models.BatchStatusApproved, models.BatchStatusRejected, models.BatchStatusCancelled:
			filter.Status = append(filter.Status, status)
		case "":
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status: %s", raw))
		}
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleLecturer, models.RoleStudent:
		filter.SubmitterID = actor.UserID
	default:
		return nil, nil, appErrors.ErrAuthorization
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	batches, total, err := s.batches.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list batches")
	}
	return batches, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a batch to its submitter or an admin.
func (s *ApprovalService) Get(ctx context.Context, actor *models.Actor, kind models.BatchKind, id string) (*models.Batch, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	batch, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(models.RoleAdmin) && batch.SubmitterID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "batch belongs to another user")
	}
	return batch, nil
}

func (s *ApprovalService) load(ctx context.Context, kind models.BatchKind, id string) (*models.Batch, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported batch kind: %s", kind))
	}
	batch, err := s.batches.GetByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s batch not found", kind))
		}
		return nil, storeError(err, "failed to load batch")
	}
	batch.Kind = kind
	return batch, nil
}

func (s *ApprovalService) notify(batch *models.Batch) {
	if s.notifier == nil {
		return
	}
	severity := models.SeveritySuccess
	if batch.Status == models.BatchStatusRejected {
		severity = models.SeverityWarning
	}
	message := fmt.Sprintf("Your %s was %s.", kindLabel(batch.Kind), batch.Status)
	if batch.ReviewerFeedback != nil {
		message = fmt.Sprintf("%s Feedback: %s", message, *batch.ReviewerFeedback)
	}
	s.notifier.Notify(batch.SubmitterID, message, severity)
}

func (s *ApprovalService) emitAudit(ctx context.Context, userID, action string, batch, before *models.Batch) {
	if s.audit == nil || batch == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   batch.Kind.Table(),
		ResourceID: &batch.ID,
		IPAddress:  "system",
		UserAgent:  "approval-service",
	}
	entry.NewValues, _ = json.Marshal(batch)
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func kindLabel(kind models.BatchKind) string {
	switch kind {
	case models.BatchKindAttendance:
		return "attendance submission"
	case models.BatchKindEnrollment:
		return "enrollment request"
	case models.BatchKindHostel:
		return "hostel booking"
	case models.BatchKindFee:
		return "fee payment"
	default:
		return "request"
	}
}
