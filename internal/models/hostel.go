package models

import "time"

// RoomStatus flags rooms that can take bookings.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomMaintenance RoomStatus = "maintenance"
)

// Room is a hostel room. Occupancy is derived from active assignments, never stored.
type Room struct {
	ID        string     `db:"id" json:"id"`
	Hostel    string     `db:"hostel" json:"hostel"`
	Number    string     `db:"number" json:"number"`
	Capacity  int        `db:"capacity" json:"capacity"`
	Status    RoomStatus `db:"status" json:"status"`
	Occupancy int        `db:"occupancy" json:"occupancy"`
}

// Full reports whether the room has no free beds.
func (r Room) Full() bool {
	return r.Occupancy >= r.Capacity
}

// RoomAssignment places a student in a room until vacated.
type RoomAssignment struct {
	ID         string     `db:"id" json:"id"`
	RoomID     string     `db:"room_id" json:"room_id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	AssignedAt time.Time  `db:"assigned_at" json:"assigned_at"`
	VacatedAt  *time.Time `db:"vacated_at" json:"vacated_at,omitempty"`
}
