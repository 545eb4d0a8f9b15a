package handler

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type feeService interface {
	SubmitPayment(ctx context.Context, actor *models.Actor, req dto.PaymentRequest) (*models.Batch, error)
	Account(ctx context.Context, actor *models.Actor, studentID string) (*models.FeeAccount, error)
	Statement(ctx context.Context, actor *models.Actor, studentID string) (*dto.DownloadLink, error)
	SlipLink(ctx context.Context, actor *models.Actor, paymentID string) (*dto.DownloadLink, error)
}

// FeeHandler exposes fee payments and account endpoints.
type FeeHandler struct {
	service        feeService
	maxUploadBytes int64
}

// NewFeeHandler constructs the handler. maxUploadBytes caps how much of the slip is read.
func NewFeeHandler(service feeService, maxUploadBytes int64) *FeeHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 * 1024 * 1024
	}
	return &FeeHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// SubmitPayment godoc
// @Summary Submit a fee payment with its slip
// @Tags Fees
// @Accept multipart/form-data
// @Produce json
// @Param amount formData number true "Paid amount"
// @Param slip formData file true "Payment slip (pdf, jpeg or png)"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /fees/payments [post]
func (h *FeeHandler) SubmitPayment(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "fee service not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("amount")), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "amount must be a number"))
		return
	}
	header, err := c.FormFile("slip")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "slip file is required"))
		return
	}
	if header.Size > h.maxUploadBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrTooLarge, "slip exceeds upload limit"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "slip file unreadable"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "slip file unreadable"))
		return
	}

	req := dto.PaymentRequest{
		Amount: amount,
		Slip: dto.FileUpload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		},
	}
	payment, err := h.service.SubmitPayment(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Account godoc
// @Summary Get a student's fee account with derived balance
// @Tags Fees
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /fees/accounts/{studentId} [get]
func (h *FeeHandler) Account(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "fee service not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	account, err := h.service.Account(c.Request.Context(), actor, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Statement godoc
// @Summary Render a PDF fee statement and return a signed download link
// @Tags Fees
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /fees/accounts/{studentId}/statement [get]
func (h *FeeHandler) Statement(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "fee service not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.service.Statement(c.Request.Context(), actor, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Slip godoc
// @Summary Get a signed link to a payment slip
// @Tags Fees
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /fees/payments/{id}/slip [get]
func (h *FeeHandler) Slip(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "fee service not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.service.SlipLink(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}
