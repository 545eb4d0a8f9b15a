package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const roomColumns = `r.id, r.hostel, r.number, r.capacity, r.status,
       (SELECT COUNT(*) FROM room_assignments a WHERE a.room_id = r.id AND a.vacated_at IS NULL) AS occupancy`

// HostelRepository persists rooms and their assignments.
type HostelRepository struct {
	db *sqlx.DB
}

// NewHostelRepository constructs the repository.
func NewHostelRepository(db *sqlx.DB) *HostelRepository {
	return &HostelRepository{db: db}
}

// ListRooms returns rooms with derived occupancy.
func (r *HostelRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms r ORDER BY r.hostel, r.number`, roomColumns)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindRoom returns a room with derived occupancy.
func (r *HostelRepository) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms r WHERE r.id = $1`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// LockRoom loads a room inside exec and holds its row lock until the transaction ends.
func (r *HostelRepository) LockRoom(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error) {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`SELECT %s FROM rooms r WHERE r.id = $1 FOR UPDATE`, roomColumns)
	var room models.Room
	if err := sqlx.GetContext(ctx, exec, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// HasActiveAssignment reports whether the student currently occupies any room.
func (r *HostelRepository) HasActiveAssignment(ctx context.Context, exec sqlx.ExtContext, studentID string) (bool, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `SELECT EXISTS(SELECT 1 FROM room_assignments WHERE student_id = $1 AND vacated_at IS NULL)`
	var exists bool
	if err := sqlx.GetContext(ctx, exec, &exists, query, studentID); err != nil {
		return false, fmt.Errorf("check room assignment: %w", err)
	}
	return exists, nil
}

// CreateAssignment inserts an active assignment.
func (r *HostelRepository) CreateAssignment(ctx context.Context, exec sqlx.ExtContext, assignment *models.RoomAssignment) error {
	if exec == nil {
		exec = r.db
	}
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO room_assignments (id, room_id, student_id, assigned_at, vacated_at)
	VALUES (:id, :room_id, :student_id, :assigned_at, :vacated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assignment); err != nil {
		return fmt.Errorf("create room assignment: %w", err)
	}
	return nil
}

// Vacate closes an active assignment. It returns sql.ErrNoRows when none matched.
func (r *HostelRepository) Vacate(ctx context.Context, id string, at time.Time) (*models.RoomAssignment, error) {
	const query = `UPDATE room_assignments SET vacated_at = $2 WHERE id = $1 AND vacated_at IS NULL
	RETURNING id, room_id, student_id, assigned_at, vacated_at`
	var assignment models.RoomAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("vacate room assignment: %w", err)
	}
	return &assignment, nil
}
