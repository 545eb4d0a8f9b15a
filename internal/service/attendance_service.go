package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
)

type attendanceStore interface {
	CreateMany(ctx context.Context, exec sqlx.ExtContext, records []models.AttendanceRecord) error
	ListByIDs(ctx context.Context, ids []string) ([]models.AttendanceRecord, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type exportPublisher interface {
	Publish(ctx context.Context, subject, basename string, format export.Format, doc export.Document) (*dto.DownloadLink, error)
}

// AttendanceService records attendance sessions and submits them for approval.
type AttendanceService struct {
	records      attendanceStore
	courses      courseReader
	approvals    *ApprovalService
	tx           txRunner
	exports      exportPublisher
	validate     *validator.Validate
	logger       *zap.Logger
	storeTimeout time.Duration
}

// NewAttendanceService constructs the service.
func NewAttendanceService(records attendanceStore, courses courseReader, approvals *ApprovalService, tx txRunner, exports exportPublisher, validate *validator.Validate, logger *zap.Logger, storeTimeout time.Duration) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		records:      records,
		courses:      courses,
		approvals:    approvals,
		tx:           tx,
		exports:      exports,
		validate:     validate,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// SubmitAttendance stores one row per entry and groups them into a pending batch.
// Rows and batch commit together.
func (s *AttendanceService) SubmitAttendance(ctx context.Context, actor *models.Actor, req dto.SubmitAttendanceRequest) (*models.Batch, error) {
	if err := requireRole(actor, models.RoleLecturer); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only lecturers can submit attendance")
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}

	seen := make(map[string]struct{}, len(req.Entries))
	records := make([]models.AttendanceRecord, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if _, dup := seen[entry.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is listed twice", entry.StudentID))
		}
		seen[entry.StudentID] = struct{}{}
		records = append(records, models.AttendanceRecord{
			CourseID:   req.CourseID,
			StudentID:  entry.StudentID,
			LecturerID: actor.UserID,
			Date:       date,
			Status:     models.AttendanceStatus(entry.Status),
		})
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, storeError(err, "failed to load course")
	}
	if course.LecturerID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "course is taught by another lecturer")
	}

	var batch *models.Batch
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		if err := s.records.CreateMany(ctx, exec, records); err != nil {
			return storeError(err, "failed to store attendance")
		}
		ids := make([]string, len(records))
		for i := range records {
			ids[i] = records[i].ID
		}
		created, err := s.approvals.CreateBatchTx(ctx, exec, actor, CreateBatchInput{
			Kind:            models.BatchKindAttendance,
			MemberRecordIDs: ids,
		})
		if err != nil {
			return err
		}
		batch = created
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to submit attendance")
	}
	s.approvals.RecordSubmitted(ctx, actor, batch)
	s.logger.Info("attendance submitted",
		zap.String("batch_id", batch.ID),
		zap.String("course_id", course.ID),
		zap.Int("records", len(records)))
	return batch, nil
}

// Records returns the member rows of an attendance batch whatever its outcome.
func (s *AttendanceService) Records(ctx context.Context, actor *models.Actor, batchID string) ([]models.AttendanceRecord, error) {
	batch, err := s.approvals.Get(ctx, actor, models.BatchKindAttendance, batchID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	records, err := s.records.ListByIDs(ctx, batch.MemberRecordIDs)
	if err != nil {
		return nil, storeError(err, "failed to load attendance records")
	}
	return records, nil
}

// Export renders the batch as an attendance sheet and returns a download link.
func (s *AttendanceService) Export(ctx context.Context, actor *models.Actor, batchID string, format export.Format) (*dto.DownloadLink, error) {
	batch, err := s.approvals.Get(ctx, actor, models.BatchKindAttendance, batchID)
	if err != nil {
		return nil, err
	}
	records, err := s.Records(ctx, actor, batchID)
	if err != nil {
		return nil, err
	}
	if s.exports == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "exports are not configured")
	}

	counts := make(map[models.AttendanceStatus]int)
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		counts[r.Status]++
		rows = append(rows, map[string]string{
			"Student ID": r.StudentID,
			"Course ID":  r.CourseID,
			"Date":       r.Date.Format("2006-01-02"),
			"Status":     string(r.Status),
		})
	}
	doc := export.Document{
		Title: "Attendance Submission",
		Meta: [][2]string{
			{"Batch", batch.ID},
			{"Status", string(batch.Status)},
			{"Submitted", batch.SubmittedAt.UTC().Format(time.RFC3339)},
		},
		Data: export.Dataset{
			Headers: []string{"Student ID", "Course ID", "Date", "Status"},
			Rows:    rows,
		},
		Summary: [][2]string{
			{"Present", fmt.Sprintf("%d", counts[models.AttendancePresent])},
			{"Absent", fmt.Sprintf("%d", counts[models.AttendanceAbsent])},
			{"Late", fmt.Sprintf("%d", counts[models.AttendanceLate])},
			{"Excused", fmt.Sprintf("%d", counts[models.AttendanceExcused])},
		},
	}
	return s.exports.Publish(ctx, batch.ID, "attendance_"+batch.ID, format, doc)
}
