package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func TestAttendanceRepositoryCreateMany(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).WillReturnResult(sqlmock.NewResult(1, 1))

	records := []models.AttendanceRecord{
		{CourseID: "c-1", StudentID: "s-1", LecturerID: "l-1", Date: time.Now(), Status: models.AttendancePresent},
		{CourseID: "c-1", StudentID: "s-2", LecturerID: "l-1", Date: time.Now(), Status: models.AttendanceAbsent},
	}
	require.NoError(t, repo.CreateMany(context.Background(), nil, records))
	assert.NotEmpty(t, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryApplyPayment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("SET amount_paid = amount_paid + $2, balance = total_fees - (amount_paid + $2), updated_at = $3")).
		WithArgs("acct-1", 250.0, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ApplyPayment(context.Background(), nil, "acct-1", 250, now))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_accounts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.ApplyPayment(context.Background(), nil, "missing", 250, now)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHostelRepositoryListRoomsDerivesOccupancy(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHostelRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AS occupancy FROM rooms r ORDER BY")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel", "number", "capacity", "status", "occupancy"}).
			AddRow("r-1", "North", "101", 2, "available", 2).
			AddRow("r-2", "North", "102", 2, "available", 0))

	rooms, err := repo.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.True(t, rooms[0].Full())
	assert.False(t, rooms[1].Full())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHostelRepositoryVacateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHostelRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE room_assignments SET vacated_at = $2")).
		WithArgs("as-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "student_id", "assigned_at", "vacated_at"}))

	_, err := repo.Vacate(context.Background(), "as-1", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryMonthlyRegistrations(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users GROUP BY 1, 2 ORDER BY 1, 2")).
		WillReturnRows(sqlmock.NewRows([]string{"month", "role", "count"}).
			AddRow("2024-01", "student", 3).
			AddRow("2024-02", "student", 2))

	counts, err := repo.MonthlyRegistrations(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.RoleStudent, counts[0].Role)
	assert.Equal(t, 3, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE")).
		WithArgs("n-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkRead(context.Background(), "n-1", "u-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE")).
		WithArgs("n-1", "u-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.MarkRead(context.Background(), "n-1", "u-2"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET points = $2")).
		WithArgs("sub-1", 45.0, "A", 4.0, "lect-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Grade(context.Background(), GradeParams{
		ID: "sub-1", Points: 45, Grade: "A", GPA: 4.0, GradedBy: "lect-1", GradedAt: now,
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
