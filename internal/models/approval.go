package models

import (
	"time"

	"github.com/lib/pq"
)

// BatchKind names the domain a batch belongs to.
type BatchKind string

const (
	BatchKindAttendance BatchKind = "attendance"
	BatchKindEnrollment BatchKind = "enrollment"
	BatchKindHostel     BatchKind = "hostel"
	BatchKindFee        BatchKind = "fee"
)

// BatchKinds lists every supported kind.
var BatchKinds = []BatchKind{BatchKindAttendance, BatchKindEnrollment, BatchKindHostel, BatchKindFee}

// Table returns the backing table for the kind.
func (k BatchKind) Table() string {
	switch k {
	case BatchKindAttendance:
		return "attendance_approvals"
	case BatchKindEnrollment:
		return "enrollment_requests"
	case BatchKindHostel:
		return "room_bookings"
	case BatchKindFee:
		return "fee_payments"
	default:
		return ""
	}
}

// Valid reports whether k is a known kind.
func (k BatchKind) Valid() bool {
	return k.Table() != ""
}

// BatchStatus captures the review lifecycle.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusApproved  BatchStatus = "approved"
	BatchStatusRejected  BatchStatus = "rejected"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchStatusApproved, BatchStatusRejected, BatchStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition is the single source of truth for the batch state machine.
// Only pending batches move; cancelled is reachable for hostel bookings only.
func CanTransition(kind BatchKind, from, to BatchStatus) bool {
	if from != BatchStatusPending {
		return false
	}
	switch to {
	case BatchStatusApproved, BatchStatusRejected:
		return true
	case BatchStatusCancelled:
		return kind == BatchKindHostel
	default:
		return false
	}
}

// Batch is a reviewable group of submitted records sharing one decision.
type Batch struct {
	ID               string         `db:"id" json:"id"`
	Kind             BatchKind      `db:"-" json:"kind"`
	SubmitterID      string         `db:"submitter_id" json:"submitter_id"`
	MemberRecordIDs  pq.StringArray `db:"member_record_ids" json:"member_record_ids"`
	Status           BatchStatus    `db:"status" json:"status"`
	Amount           *float64       `db:"amount" json:"amount,omitempty"`
	AttachmentURL    *string        `db:"attachment_url" json:"attachment_url,omitempty"`
	Note             *string        `db:"note" json:"note,omitempty"`
	ReviewerID       *string        `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ReviewerFeedback *string        `db:"reviewer_feedback" json:"reviewer_feedback,omitempty"`
	SubmittedAt      time.Time      `db:"submitted_at" json:"submitted_at"`
	ReviewedAt       *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// FirstMember returns the single referenced record for one-record batches.
func (b *Batch) FirstMember() string {
	if b == nil || len(b.MemberRecordIDs) == 0 {
		return ""
	}
	return b.MemberRecordIDs[0]
}

// BatchFilter constrains listing queries.
type BatchFilter struct {
	Kind        BatchKind
	Status      []BatchStatus
	SubmitterID string
	MemberID    string
	Limit       int
	Offset      int
}

// BatchTransition groups the columns written by a status change.
type BatchTransition struct {
	Kind       BatchKind
	ID         string
	From       BatchStatus
	To         BatchStatus
	ReviewerID *string
	Feedback   *string
	ReviewedAt *time.Time
}
