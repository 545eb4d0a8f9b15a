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

type approvalService interface {
	List(ctx context.Context, actor *models.Actor, kind models.BatchKind, query dto.BatchQuery) ([]models.Batch, *models.Pagination, error)
	Get(ctx context.Context, actor *models.Actor, kind models.BatchKind, id string) (*models.Batch, error)
	Review(ctx context.Context, actor *models.Actor, kind models.BatchKind, id string, req dto.ReviewRequest) (*models.Batch, error)
	Cancel(ctx context.Context, actor *models.Actor, kind models.BatchKind, id string) (*models.Batch, error)
}

// ApprovalHandler serves the review lifecycle endpoints shared by every batch kind.
// One instance is mounted per kind.
type ApprovalHandler struct {
	service approvalService
	kind    models.BatchKind
}

// NewApprovalHandler constructs the handler for one batch kind.
func NewApprovalHandler(service approvalService, kind models.BatchKind) *ApprovalHandler {
	return &ApprovalHandler{service: service, kind: kind}
}

// List godoc
// @Summary List approval batches
// @Tags Approvals
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance/submissions [get]
// @Router /enrollment-requests [get]
// @Router /hostel/bookings [get]
// @Router /fees/payments [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "approval service not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	batches, pagination, err := h.service.List(c.Request.Context(), actor, h.kind, batchQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, pagination)
}

// Get godoc
// @Summary Get approval batch detail
// @Tags Approvals
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/submissions/{id} [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "approval service not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	batch, err := h.service.Get(c.Request.Context(), actor, h.kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Review godoc
// @Summary Approve or reject a pending batch
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body dto.ReviewRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/submissions/{id}/review [post]
// @Router /enrollment-requests/{id}/review [post]
// @Router /hostel/bookings/{id}/review [post]
// @Router /fees/payments/{id}/review [post]
func (h *ApprovalHandler) Review(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "approval service not configured"))
		return
	}
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	batch, err := h.service.Review(c.Request.Context(), actor, h.kind, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Cancel godoc
// @Summary Withdraw a pending hostel booking
// @Tags Hostel
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /hostel/bookings/{id}/cancel [post]
func (h *ApprovalHandler) Cancel(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "approval service not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	batch, err := h.service.Cancel(c.Request.Context(), actor, h.kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}
