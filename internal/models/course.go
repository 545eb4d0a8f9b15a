package models

import "time"

// Course is the read-only course projection used for enrollment and attendance checks.
type Course struct {
	ID         string `db:"id" json:"id"`
	Code       string `db:"code" json:"code"`
	Title      string `db:"title" json:"title"`
	LecturerID string `db:"lecturer_id" json:"lecturer_id"`
	Credits    int    `db:"credits" json:"credits"`
}

// EnrollmentStatus tracks a student's membership in a course.
type EnrollmentStatus string

const (
	EnrollmentActive  EnrollmentStatus = "active"
	EnrollmentDropped EnrollmentStatus = "dropped"
)

// Enrollment links a student to a course.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
}
