package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
	"github.com/noah-isme/campus-portal-api/pkg/mailer"
)

const notificationJobType = "notification"

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type notificationDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type notificationRecorder interface {
	RecordNotification(outcome string)
}

// NotificationService queues outcome notifications and serves the user inbox.
// Notify never blocks: a full queue drops the notification with a warning.
type NotificationService struct {
	store        notificationStore
	queue        notificationDispatcher
	metrics      notificationRecorder
	logger       *zap.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(store notificationStore, queue notificationDispatcher, metrics notificationRecorder, logger *zap.Logger, storeTimeout time.Duration) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		store:        store,
		queue:        queue,
		metrics:      metrics,
		logger:       logger,
		storeTimeout: storeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Notify implements Notifier.
func (s *NotificationService) Notify(userID, message string, severity models.Severity) {
	if strings.TrimSpace(userID) == "" || s.queue == nil {
		return
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Severity:  severity,
		CreatedAt: s.now(),
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: n.ID, Type: notificationJobType, Payload: n}); err != nil {
		s.logger.Sugar().Warnw("notification dropped", "user_id", userID, "error", err)
		if s.metrics != nil {
			s.metrics.RecordNotification("dropped")
		}
	}
}

// List returns the actor's newest notifications.
func (s *NotificationService) List(ctx context.Context, actor *models.Actor, unreadOnly bool, limit int) ([]models.Notification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	items, err := s.store.ListByUser(ctx, actor.UserID, unreadOnly, limit)
	if err != nil {
		return nil, storeError(err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.Actor, id string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return storeError(err, "failed to update notification")
	}
	return nil
}

// NotificationWorker persists queued notifications and mirrors them by e-mail when configured.
type NotificationWorker struct {
	store   notificationStore
	users   userDirectory
	mail    mailSender
	metrics notificationRecorder
	logger  *zap.Logger
}

// NewNotificationWorker constructs the worker. users and mail may be nil to disable e-mail.
func NewNotificationWorker(store notificationStore, users userDirectory, mail mailSender, metrics notificationRecorder, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{store: store, users: users, mail: mail, metrics: metrics, logger: logger}
}

// Handle processes a queue job.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok || n == nil {
		w.logger.Sugar().Warnw("discarding malformed notification job", "job_id", job.ID)
		return nil
	}
	if err := w.store.Create(ctx, n); err != nil {
		w.record("failed")
		return fmt.Errorf("persist notification: %w", err)
	}
	if w.mail != nil && w.users != nil {
		user, err := w.users.FindByID(ctx, n.UserID)
		if err != nil {
			w.logger.Sugar().Warnw("notification recipient lookup failed", "user_id", n.UserID, "error", err)
		} else if user.Email != "" {
			msg := mailer.Message{
				To:      []string{user.Email},
				Subject: "Campus portal update",
				HTML:    fmt.Sprintf("<p>Hello %s,</p><p>%s</p>", html.EscapeString(user.FullName), html.EscapeString(n.Message)),
			}
			if err := w.mail.Send(ctx, msg); err != nil {
				w.logger.Sugar().Warnw("notification e-mail failed", "user_id", n.UserID, "error", err)
			}
		}
	}
	w.record("delivered")
	return nil
}

func (w *NotificationWorker) record(outcome string) {
	if w.metrics != nil {
		w.metrics.RecordNotification(outcome)
	}
}
