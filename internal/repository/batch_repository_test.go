package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var batchRowColumns = []string{"id", "submitter_id", "member_record_ids", "status", "amount", "attachment_url", "note", "reviewer_id", "reviewer_feedback", "submitted_at", "reviewed_at"}

func TestBatchRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_approvals")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	batch := &models.Batch{
		Kind:            models.BatchKindAttendance,
		SubmitterID:     "lect-1",
		MemberRecordIDs: pq.StringArray{"att-1", "att-2"},
	}
	require.NoError(t, repo.Create(context.Background(), nil, batch))
	require.NotEmpty(t, batch.ID)
	require.Equal(t, models.BatchStatusPending, batch.Status)
	require.False(t, batch.SubmittedAt.IsZero())

	rows := sqlmock.NewRows(batchRowColumns).
		AddRow(batch.ID, "lect-1", "{att-1,att-2}", "pending", nil, nil, nil, nil, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_approvals WHERE id = $1")).
		WithArgs(batch.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), models.BatchKindAttendance, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchKindAttendance, found.Kind)
	assert.Equal(t, []string{"att-1", "att-2"}, []string(found.MemberRecordIDs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryRejectsUnknownKind(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	err := repo.Create(context.Background(), nil, &models.Batch{Kind: "library"})
	require.Error(t, err)
	_, err = repo.GetByID(context.Background(), "library", "x")
	require.Error(t, err)
}

func TestBatchRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM fee_payments WHERE status IN ($1) AND submitter_id = $2")).
		WithArgs(models.BatchStatusPending, "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	amount := 250.0
	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_payments WHERE status IN ($1) AND submitter_id = $2 ORDER BY submitted_at DESC LIMIT 50 OFFSET 0")).
		WithArgs(models.BatchStatusPending, "stu-1").
		WillReturnRows(sqlmock.NewRows(batchRowColumns).
			AddRow("pay-1", "stu-1", "{acct-1}", "pending", amount, "slips/a.png", nil, nil, nil, time.Now(), nil))

	list, total, err := repo.List(context.Background(), models.BatchFilter{
		Kind:        models.BatchKindFee,
		Status:      []models.BatchStatus{models.BatchStatusPending},
		SubmitterID: "stu-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, models.BatchKindFee, list[0].Kind)
	require.NotNil(t, list[0].Amount)
	assert.Equal(t, 250.0, *list[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryTransitionIf(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	reviewer := "admin-1"
	reviewedAt := time.Now()
	transition := models.BatchTransition{
		Kind:       models.BatchKindEnrollment,
		ID:         "req-1",
		From:       models.BatchStatusPending,
		To:         models.BatchStatusApproved,
		ReviewerID: &reviewer,
		ReviewedAt: &reviewedAt,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_requests SET status = $1")).
		WithArgs(models.BatchStatusApproved, &reviewer, nil, sqlmock.AnyArg(), "req-1", models.BatchStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.TransitionIf(context.Background(), nil, transition)
	require.NoError(t, err)
	require.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_requests SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.TransitionIf(context.Background(), nil, transition)
	require.NoError(t, err)
	require.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerCommitsAndRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	manager := NewTxManager(db)
	repo := NewBatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_bookings SET status = $1")).
		WithArgs(models.BatchStatusCancelled, nil, nil, nil, "b-1", models.BatchStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := manager.WithinTx(context.Background(), func(exec sqlx.ExtContext) error {
		_, err := repo.TransitionIf(context.Background(), exec, models.BatchTransition{
			Kind: models.BatchKindHostel, ID: "b-1", From: models.BatchStatusPending, To: models.BatchStatusCancelled,
		})
		return err
	})
	require.NoError(t, err)

	boom := errors.New("side effect failed")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = manager.WithinTx(context.Background(), func(sqlx.ExtContext) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
