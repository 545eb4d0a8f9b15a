package service

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

func TestGradeForBoundaries(t *testing.T) {
	cases := []struct {
		score  float64
		letter string
		points float64
	}{
		{100, "A", 4.0},
		{90, "A", 4.0},
		{89.99, "B", 3.0},
		{80, "B", 3.0},
		{79.5, "C", 2.0},
		{70, "C", 2.0},
		{60, "D", 1.0},
		{59.99, "F", 0},
		{0, "F", 0},
	}
	for _, tc := range cases {
		got := GradeFor(tc.score)
		assert.Equal(t, tc.letter, got.Letter, "score %v", tc.score)
		assert.Equal(t, tc.points, got.Points, "score %v", tc.score)
	}
}

type submissionStub struct {
	subs   map[string]models.Submission
	graded []repository.GradeParams
}

func (s *submissionStub) FindByID(_ context.Context, id string) (*models.Submission, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sub, nil
}

func (s *submissionStub) ListGradedByStudent(_ context.Context, studentID string) ([]models.Submission, error) {
	var out []models.Submission
	for _, sub := range s.subs {
		if sub.StudentID == studentID && sub.GPA != nil {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *submissionStub) Grade(_ context.Context, params repository.GradeParams) error {
	sub, ok := s.subs[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	s.graded = append(s.graded, params)
	sub.Points = &params.Points
	sub.Grade = &params.Grade
	sub.GPA = &params.GPA
	s.subs[params.ID] = sub
	return nil
}

func points(v float64) *float64 { return &v }

func TestGradeSubmission(t *testing.T) {
	store := &submissionStub{subs: map[string]models.Submission{
		"sub-1": {ID: "sub-1", StudentID: "stu-1", MaxPoints: 50, CourseID: "course-1", LecturerID: "lect-1"},
		"sub-2": {ID: "sub-2", StudentID: "stu-1", MaxPoints: 20, CourseID: "course-1", LecturerID: "lect-1"},
		"sub-3": {ID: "sub-3", StudentID: "stu-1", MaxPoints: 20, CourseID: "course-2", LecturerID: "lect-9"},
	}}
	notifier := &notifierStub{}
	audit := &auditStub{}
	svc := NewGradingService(store, audit, notifier, nil, time.Second)
	ctx := context.Background()

	_, err := svc.GradeSubmission(ctx, studentActor, "sub-1", dto.GradeRequest{Points: points(40)})
	requireCode(t, err, appErrors.ErrAuthorization)

	_, err = svc.GradeSubmission(ctx, lecturerActor, "sub-1", dto.GradeRequest{})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.GradeSubmission(ctx, lecturerActor, "sub-1", dto.GradeRequest{Points: points(51)})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.GradeSubmission(ctx, lecturerActor, "sub-1", dto.GradeRequest{Points: points(-1)})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.GradeSubmission(ctx, lecturerActor, "sub-1", dto.GradeRequest{Points: points(math.NaN())})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.GradeSubmission(ctx, lecturerActor, "sub-3", dto.GradeRequest{Points: points(10)})
	requireCode(t, err, appErrors.ErrAuthorization)
	assert.Nil(t, store.subs["sub-3"].Grade)

	_, err = svc.GradeSubmission(ctx, lecturerActor, "sub-9", dto.GradeRequest{Points: points(1)})
	requireCode(t, err, appErrors.ErrNotFound)

	graded, err := svc.GradeSubmission(ctx, lecturerActor, "sub-1", dto.GradeRequest{Points: points(45)})
	require.NoError(t, err)
	assert.Equal(t, "A", *graded.Grade)
	assert.Equal(t, 4.0, *graded.GPA)
	assert.Equal(t, "lect-1", *graded.GradedBy)

	_, err = svc.GradeSubmission(ctx, lecturerActor, "sub-2", dto.GradeRequest{Points: points(14)})
	require.NoError(t, err)

	gpa, err := svc.StudentGPA(ctx, studentActor, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 2, gpa.Graded)
	assert.Equal(t, 3.0, gpa.GPA)

	_, err = svc.StudentGPA(ctx, otherStudent, "stu-1")
	requireCode(t, err, appErrors.ErrAuthorization)

	require.Len(t, audit.logs, 2)
	assert.Equal(t, models.AuditActionGrade, audit.logs[0].Action)
	assert.Equal(t, []string{"stu-1", "stu-1"}, notifier.users)
}

func TestAggregateGPA(t *testing.T) {
	empty := AggregateGPA("stu-1", nil)
	assert.Equal(t, 0, empty.Graded)
	assert.Equal(t, 0.0, empty.GPA)

	subs := []models.Submission{
		{GPA: points(4)},
		{GPA: points(3)},
		{GPA: points(3)},
		{},
	}
	got := AggregateGPA("stu-1", subs)
	assert.Equal(t, 3, got.Graded)
	assert.Equal(t, 3.33, got.GPA)
}
