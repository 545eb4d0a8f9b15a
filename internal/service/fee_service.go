package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
	"github.com/noah-isme/campus-portal-api/pkg/storage"
)

type feeAccountReader interface {
	FindByStudent(ctx context.Context, studentID string) (*models.FeeAccount, error)
}

type slipUploader interface {
	Upload(ctx context.Context, bucket, name string, data []byte) (string, error)
}

type downloadLinks interface {
	exportPublisher
	Sign(subject, key string) (*dto.DownloadLink, error)
}

// FeeConfig bounds accepted payment slips.
type FeeConfig struct {
	MaxSlipBytes int64
	AllowedMIMEs []string
}

var slipExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// FeeService accepts fee payments and reports balances derived from the ledger.
type FeeService struct {
	accounts     feeAccountReader
	batches      batchStore
	slips        slipUploader
	links        downloadLinks
	approvals    *ApprovalService
	cfg          FeeConfig
	logger       *zap.Logger
	storeTimeout time.Duration
}

// NewFeeService constructs the service.
func NewFeeService(accounts feeAccountReader, batches batchStore, slips slipUploader, links downloadLinks, approvals *ApprovalService, cfg FeeConfig, logger *zap.Logger, storeTimeout time.Duration) *FeeService {
	if cfg.MaxSlipBytes <= 0 {
		cfg.MaxSlipBytes = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{
		accounts:     accounts,
		batches:      batches,
		slips:        slips,
		links:        links,
		approvals:    approvals,
		cfg:          cfg,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// SubmitPayment uploads the slip and files a pending payment against the student's account.
func (s *FeeService) SubmitPayment(ctx context.Context, actor *models.Actor, req dto.PaymentRequest) (*models.Batch, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthorization, "only students can submit fee payments")
	}
	if !validAmount(req.Amount) || !validAmount(roundAmount(req.Amount)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment amount must be a positive number")
	}
	if len(req.Slip.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment slip is required")
	}
	if int64(len(req.Slip.Data)) > s.cfg.MaxSlipBytes {
		return nil, appErrors.Clone(appErrors.ErrTooLarge, fmt.Sprintf("payment slip exceeds %d bytes", s.cfg.MaxSlipBytes))
	}
	mimeType, err := s.detectSlipType(req.Slip)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	account, err := s.accounts.FindByStudent(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee account not found")
		}
		return nil, storeError(err, "failed to load fee account")
	}

	name := fmt.Sprintf("%s/%s%s", actor.UserID, uuid.NewString(), slipExtensions[mimeType])
	key, err := s.slips.Upload(ctx, storage.BucketPaymentSlips, name, req.Slip.Data)
	if err != nil {
		return nil, appErrors.Store(err, "failed to upload payment slip")
	}

	amount := roundAmount(req.Amount)
	return s.approvals.CreateBatch(ctx, actor, CreateBatchInput{
		Kind:            models.BatchKindFee,
		MemberRecordIDs: []string{account.ID},
		Amount:          &amount,
		AttachmentURL:   &key,
	})
}

// Account returns the student's fee account with its derived balance.
func (s *FeeService) Account(ctx context.Context, actor *models.Actor, studentID string) (*models.FeeAccount, error) {
	if err := requireSelfOrAdmin(actor, studentID); err != nil {
		return nil, err
	}
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	account, err := s.accounts.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee account not found")
		}
		return nil, storeError(err, "failed to load fee account")
	}
	if account.Drifted() {
		s.logger.Warn("fee balance drift",
			zap.String("account_id", account.ID),
			zap.Float64("stored", account.Balance),
			zap.Float64("derived", account.DerivedBalance()))
	}
	account.Balance = account.DerivedBalance()
	return account, nil
}

// Statement renders a PDF of the account and its payments and returns a download link.
func (s *FeeService) Statement(ctx context.Context, actor *models.Actor, studentID string) (*dto.DownloadLink, error) {
	account, err := s.Account(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	listCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	payments, _, err := s.batches.List(listCtx, models.BatchFilter{
		Kind:     models.BatchKindFee,
		MemberID: account.ID,
		Limit:    200,
	})
	if err != nil {
		return nil, storeError(err, "failed to list payments")
	}

	rows := make([]map[string]string, 0, len(payments))
	for _, p := range payments {
		amount := 0.0
		if p.Amount != nil {
			amount = *p.Amount
		}
		reviewed := ""
		if p.ReviewedAt != nil {
			reviewed = p.ReviewedAt.UTC().Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"Submitted": p.SubmittedAt.UTC().Format("2006-01-02"),
			"Amount":    fmt.Sprintf("%.2f", amount),
			"Status":    string(p.Status),
			"Reviewed":  reviewed,
		})
	}
	doc := export.Document{
		Title: "Fee Statement",
		Meta: [][2]string{
			{"Student", account.StudentID},
			{"Account", account.ID},
			{"Generated", time.Now().UTC().Format(time.RFC3339)},
		},
		Data: export.Dataset{
			Headers: []string{"Submitted", "Amount", "Status", "Reviewed"},
			Rows:    rows,
		},
		Summary: [][2]string{
			{"Total fees", fmt.Sprintf("%.2f", account.TotalFees)},
			{"Amount paid", fmt.Sprintf("%.2f", account.AmountPaid)},
			{"Balance", fmt.Sprintf("%.2f", account.Balance)},
		},
	}
	return s.links.Publish(ctx, account.ID, "fee_statement_"+account.StudentID, export.FormatPDF, doc)
}

// SlipLink returns a short-lived download link for a payment's slip.
func (s *FeeService) SlipLink(ctx context.Context, actor *models.Actor, paymentID string) (*dto.DownloadLink, error) {
	payment, err := s.approvals.Get(ctx, actor, models.BatchKindFee, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.AttachmentURL == nil || *payment.AttachmentURL == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment has no slip")
	}
	return s.links.Sign(payment.ID, *payment.AttachmentURL)
}

func (s *FeeService) detectSlipType(slip dto.FileUpload) (string, error) {
	sniffed := strings.TrimSpace(strings.Split(http.DetectContentType(slip.Data), ";")[0])
	declared := strings.TrimSpace(strings.Split(slip.ContentType, ";")[0])
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(sniffed, allowed) {
			if declared != "" && declared != "application/octet-stream" && !strings.EqualFold(declared, sniffed) {
				return "", appErrors.Clone(appErrors.ErrValidation, "payment slip content does not match its type")
			}
			return strings.ToLower(sniffed), nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("payment slip type %s is not allowed", sniffed))
}

func requireSelfOrAdmin(actor *models.Actor, userID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Is(models.RoleAdmin) || actor.UserID == userID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrAuthorization, "record belongs to another user")
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
