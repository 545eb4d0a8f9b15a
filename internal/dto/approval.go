package dto

// ReviewRequest carries a reviewer decision.
type ReviewRequest struct {
	Decision string `json:"decision" validate:"required"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

// BatchQuery mirrors supported listing filters.
type BatchQuery struct {
	Status   []string
	Page     int
	PageSize int
}

// SubmitAttendanceRequest records marks for one course session.
type SubmitAttendanceRequest struct {
	CourseID string                   `json:"course_id" validate:"required"`
	Date     string                   `json:"date" validate:"required,datetime=2006-01-02"`
	Entries  []AttendanceEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceEntryRequest is one student's mark.
type AttendanceEntryRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent late excused"`
}

// EnrollmentRequest asks to join a course.
type EnrollmentRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// BookingRequest asks for a hostel room.
type BookingRequest struct {
	RoomID string `json:"room_id" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

// AssignRoomRequest places a student into a room.
type AssignRoomRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// GradeRequest scores a submission.
type GradeRequest struct {
	Points *float64 `json:"points" validate:"required"`
}

// FileUpload is an uploaded file held in memory.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// PaymentRequest submits a fee payment with its slip.
type PaymentRequest struct {
	Amount float64 `validate:"gt=0"`
	Slip   FileUpload
}

// DownloadLink is a signed, expiring URL.
type DownloadLink struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
