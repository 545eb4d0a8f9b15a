package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type hostelService interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	RequestBooking(ctx context.Context, actor *models.Actor, req dto.BookingRequest) (*models.Batch, error)
	AssignRoom(ctx context.Context, actor *models.Actor, roomID string, req dto.AssignRoomRequest) (*models.RoomAssignment, error)
	VacateAssignment(ctx context.Context, actor *models.Actor, assignmentID string) (*models.RoomAssignment, error)
}

// HostelHandler exposes room inventory, bookings and assignments.
type HostelHandler struct {
	service hostelService
}

// NewHostelHandler constructs the handler.
func NewHostelHandler(service hostelService) *HostelHandler {
	return &HostelHandler{service: service}
}

// Rooms godoc
// @Summary List hostel rooms with live occupancy
// @Tags Hostel
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /hostel/rooms [get]
func (h *HostelHandler) Rooms(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "hostel service not configured"))
		return
	}
	rooms, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Book godoc
// @Summary Request a hostel room
// @Tags Hostel
// @Accept json
// @Produce json
// @Param payload body dto.BookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /hostel/bookings [post]
func (h *HostelHandler) Book(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "hostel service not configured"))
		return
	}
	var req dto.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid booking payload"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	batch, err := h.service.RequestBooking(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// Assign godoc
// @Summary Place a student directly into a room
// @Tags Hostel
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body dto.AssignRoomRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /hostel/rooms/{id}/assignments [post]
func (h *HostelHandler) Assign(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "hostel service not configured"))
		return
	}
	var req dto.AssignRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignment, err := h.service.AssignRoom(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Vacate godoc
// @Summary End an active room assignment
// @Tags Hostel
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /hostel/assignments/{id}/vacate [post]
func (h *HostelHandler) Vacate(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "hostel service not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignment, err := h.service.VacateAssignment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}
