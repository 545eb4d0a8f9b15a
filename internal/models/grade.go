package models

import "time"

// Assignment is coursework with a maximum score.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	MaxPoints float64   `db:"max_points" json:"max_points"`
	DueAt     time.Time `db:"due_at" json:"due_at"`
}

// Submission is a student's answer to an assignment, graded by a lecturer.
type Submission struct {
	ID            string     `db:"id" json:"id"`
	AssignmentID  string     `db:"assignment_id" json:"assignment_id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	AttachmentURL *string    `db:"attachment_url" json:"attachment_url,omitempty"`
	Points        *float64   `db:"points" json:"points,omitempty"`
	Grade         *string    `db:"grade" json:"grade,omitempty"`
	GPA           *float64   `db:"gpa" json:"gpa,omitempty"`
	GradedBy      *string    `db:"graded_by" json:"graded_by,omitempty"`
	GradedAt      *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	SubmittedAt   time.Time  `db:"submitted_at" json:"submitted_at"`
	MaxPoints     float64    `db:"max_points" json:"max_points"`
	CourseID      string     `db:"course_id" json:"course_id"`
	LecturerID    string     `db:"lecturer_id" json:"-"`
}

// GradeBucket is a letter grade with its grade-point value.
type GradeBucket struct {
	Letter string  `json:"letter"`
	Points float64 `json:"points"`
}

// StudentGPA summarises graded work of one student.
type StudentGPA struct {
	StudentID string  `json:"student_id"`
	Graded    int     `json:"graded"`
	GPA       float64 `json:"gpa"`
}
