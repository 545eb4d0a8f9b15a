package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
	"github.com/noah-isme/campus-portal-api/pkg/storage"
)

type objectStore interface {
	Upload(ctx context.Context, bucket, name string, data []byte) (string, error)
	Read(key string) ([]byte, error)
	CleanupOlderThan(bucket string, ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Generate(subject, key string) (string, time.Time, error)
	Parse(token string) (*storage.SignedObject, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// StoredFile is an object resolved from a download token.
type StoredFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportService renders documents, stores them and hands out signed download links.
type ExportService struct {
	storage objectStore
	signer  urlSigner
	csv     documentRenderer
	pdf     documentRenderer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(store objectStore, signer urlSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		storage: store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Publish renders doc in format, stores it in the exports bucket and returns a signed link.
func (s *ExportService) Publish(ctx context.Context, subject, basename string, format export.Format, doc export.Document) (*dto.DownloadLink, error) {
	var renderer documentRenderer
	switch format {
	case export.FormatCSV:
		renderer = s.csv
	case export.FormatPDF:
		renderer = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	payload, err := renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	name := fmt.Sprintf("%s_%s.%s", sanitizeFilename(basename), s.now().Format("20060102_150405"), format)
	key, err := s.storage.Upload(ctx, storage.BucketExports, name, payload)
	if err != nil {
		return nil, appErrors.Store(err, "failed to store export")
	}
	s.logger.Info("export published", zap.String("subject", subject), zap.String("key", key), zap.Int("bytes", len(payload)))
	return s.Sign(subject, key)
}

// Sign returns a download link for an already stored object.
func (s *ExportService) Sign(subject, key string) (*dto.DownloadLink, error) {
	token, expiresAt, err := s.signer.Generate(subject, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &dto.DownloadLink{
		URL:       fmt.Sprintf("%s/files/%s", prefix, token),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Resolve validates a download token and loads the object it grants.
func (s *ExportService) Resolve(token string) (*StoredFile, error) {
	obj, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	data, err := s.storage.Read(obj.Key)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	name := obj.Key
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return &StoredFile{Name: name, ContentType: contentTypeFor(name), Data: data}, nil
}

// Cleanup removes exports older than the configured retention.
func (s *ExportService) Cleanup(ctx context.Context) error {
	removed, err := s.storage.CleanupOlderThan(storage.BucketExports, s.cfg.ResultTTL)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return ctx.Err()
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "export"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
