package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type hostelStore interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	FindRoom(ctx context.Context, id string) (*models.Room, error)
	LockRoom(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error)
	HasActiveAssignment(ctx context.Context, exec sqlx.ExtContext, studentID string) (bool, error)
	CreateAssignment(ctx context.Context, exec sqlx.ExtContext, assignment *models.RoomAssignment) error
	Vacate(ctx context.Context, id string, at time.Time) (*models.RoomAssignment, error)
}

// HostelService handles room bookings and the admin-driven room assignments that define occupancy.
type HostelService struct {
	rooms        hostelStore
	approvals    *ApprovalService
	tx           txRunner
	audit        auditLogger
	notifier     Notifier
	validate     *validator.Validate
	logger       *zap.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewHostelService constructs the service.
func NewHostelService(rooms hostelStore, approvals *ApprovalService, tx txRunner, audit auditLogger, notifier Notifier, validate *validator.Validate, logger *zap.Logger, storeTimeout time.Duration) *HostelService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostelService{
		rooms:        rooms,
		approvals:    approvals,
		tx:           tx,
		audit:        audit,
		notifier:     notifier,
		validate:     validate,
		logger:       logger,
		storeTimeout: storeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ListRooms returns all rooms with their current occupancy.
func (s *HostelService) ListRooms(ctx context.Context) ([]models.Room, error) {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list rooms")
	}
	return rooms, nil
}

// RequestBooking files a pending booking for an existing, bookable room.
func (s *HostelService) RequestBooking(ctx context.Context, actor *models.Actor, req dto.BookingRequest) (*models.Batch, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only students can book rooms")
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	lookupCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	room, err := s.rooms.FindRoom(lookupCtx, req.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, storeError(err, "failed to load room")
	}
	if room.Status != models.RoomAvailable {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "room is not open for booking")
	}
	if room.Full() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "room is full")
	}
	pending, err := s.approvals.ExistsPending(ctx, actor, models.BatchKindHostel, req.RoomID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "a booking for this room is already pending")
	}

	return s.approvals.CreateBatch(ctx, actor, CreateBatchInput{
		Kind:            models.BatchKindHostel,
		MemberRecordIDs: []string{req.RoomID},
		Note:            optionalString(req.Note),
	})
}

// AssignRoom places a student into a room. The room row stays locked while
// occupancy is checked so concurrent assignments cannot overfill it.
func (s *HostelService) AssignRoom(ctx context.Context, actor *models.Actor, roomID string, req dto.AssignRoomRequest) (*models.RoomAssignment, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only admins can assign rooms")
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	assignment := &models.RoomAssignment{RoomID: roomID, StudentID: req.StudentID, AssignedAt: s.now()}
	err := s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		room, err := s.rooms.LockRoom(ctx, exec, roomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "room not found")
			}
			return storeError(err, "failed to lock room")
		}
		if room.Status != models.RoomAvailable {
			return appErrors.Clone(appErrors.ErrInvalidState, "room is under maintenance")
		}
		if room.Full() {
			return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("room is full (%d/%d)", room.Occupancy, room.Capacity))
		}
		housed, err := s.rooms.HasActiveAssignment(ctx, exec, req.StudentID)
		if err != nil {
			return storeError(err, "failed to check student assignment")
		}
		if housed {
			return appErrors.Clone(appErrors.ErrInvalidState, "student already has a room")
		}
		if err := s.rooms.CreateAssignment(ctx, exec, assignment); err != nil {
			return storeError(err, "failed to assign room")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to assign room")
	}

	s.record(ctx, actor.UserID, models.AuditActionRoomAssign, assignment)
	if s.notifier != nil {
		s.notifier.Notify(assignment.StudentID, "You have been assigned a hostel room.", models.SeveritySuccess)
	}
	return assignment, nil
}

// VacateAssignment ends an active assignment and frees its bed.
func (s *HostelService) VacateAssignment(ctx context.Context, actor *models.Actor, assignmentID string) (*models.RoomAssignment, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only admins can vacate rooms")
	}
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	assignment, err := s.rooms.Vacate(ctx, assignmentID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "active assignment not found")
		}
		return nil, storeError(err, "failed to vacate room")
	}
	s.record(ctx, actor.UserID, models.AuditActionRoomVacate, assignment)
	return assignment, nil
}

func (s *HostelService) record(ctx context.Context, userID, action string, assignment *models.RoomAssignment) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "room_assignments",
		ResourceID: &assignment.ID,
		IPAddress:  "system",
		UserAgent:  "hostel-service",
	}
	entry.NewValues, _ = json.Marshal(assignment)
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
