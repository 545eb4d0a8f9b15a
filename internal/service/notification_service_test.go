package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
	"github.com/noah-isme/campus-portal-api/pkg/mailer"
)

type notificationStoreStub struct {
	mu      sync.Mutex
	created []models.Notification
	failing error
}

func (s *notificationStoreStub) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return s.failing
	}
	s.created = append(s.created, *n)
	return nil
}

func (s *notificationStoreStub) ListByUser(_ context.Context, userID string, unreadOnly bool, _ int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.created {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *notificationStoreStub) MarkRead(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.created {
		if s.created[i].ID == id && s.created[i].UserID == userID {
			s.created[i].Read = true
			return nil
		}
	}
	return sql.ErrNoRows
}

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) TryEnqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *outcomeRecorder) RecordNotification(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

type userDirectoryStub struct {
	users map[string]models.User
}

func (u *userDirectoryStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

type mailStub struct {
	sent []mailer.Message
	err  error
}

func (m *mailStub) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotifyEnqueuesWithoutBlocking(t *testing.T) {
	dispatcher := &dispatcherStub{}
	metrics := &outcomeRecorder{}
	svc := NewNotificationService(&notificationStoreStub{}, dispatcher, metrics, nil, time.Second)

	svc.Notify("stu-1", "Your fee payment was approved.", models.SeveritySuccess)
	svc.Notify("", "ignored", models.SeverityInfo)
	require.Len(t, dispatcher.jobs, 1)
	payload, ok := dispatcher.jobs[0].Payload.(*models.Notification)
	require.True(t, ok)
	assert.Equal(t, "stu-1", payload.UserID)
	assert.Equal(t, models.SeveritySuccess, payload.Severity)

	core, logs := observer.New(zap.WarnLevel)
	dispatcher.err = jobs.ErrQueueFull
	svc = NewNotificationService(&notificationStoreStub{}, dispatcher, metrics, zap.New(core), time.Second)
	svc.Notify("stu-1", "dropped", models.SeverityInfo)
	assert.Equal(t, 1, logs.FilterMessage("notification dropped").Len())
	assert.Equal(t, []string{"dropped"}, metrics.outcomes)
}

func TestNotificationInbox(t *testing.T) {
	store := &notificationStoreStub{created: []models.Notification{
		{ID: "n-1", UserID: "stu-1", Message: "a"},
		{ID: "n-2", UserID: "stu-1", Message: "b", Read: true},
		{ID: "n-3", UserID: "stu-2", Message: "c"},
	}}
	svc := NewNotificationService(store, &dispatcherStub{}, nil, nil, time.Second)
	ctx := context.Background()

	all, err := svc.List(ctx, studentActor, false, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unread, err := svc.List(ctx, studentActor, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n-1", unread[0].ID)

	require.NoError(t, svc.MarkRead(ctx, studentActor, "n-1"))
	requireCode(t, svc.MarkRead(ctx, studentActor, "n-3"), appErrors.ErrNotFound)

	empty, err := svc.List(ctx, &models.Actor{UserID: "nobody", Role: models.RoleStudent}, false, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.List(ctx, nil, false, 10)
	requireCode(t, err, appErrors.ErrUnauthorized)
}

func TestNotificationWorkerPersistsAndMails(t *testing.T) {
	store := &notificationStoreStub{}
	mail := &mailStub{}
	metrics := &outcomeRecorder{}
	users := &userDirectoryStub{users: map[string]models.User{
		"stu-1": {ID: "stu-1", Email: "stu1@campus.test", FullName: "Ada <Student>"},
	}}
	worker := NewNotificationWorker(store, users, mail, metrics, nil)
	ctx := context.Background()

	n := &models.Notification{ID: "n-1", UserID: "stu-1", Message: "Your hostel booking was approved.", Severity: models.SeveritySuccess}
	require.NoError(t, worker.Handle(ctx, jobs.Job{ID: n.ID, Payload: n}))
	require.Len(t, store.created, 1)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"stu1@campus.test"}, mail.sent[0].To)
	assert.Contains(t, mail.sent[0].HTML, "Ada &lt;Student&gt;")

	unknown := &models.Notification{ID: "n-2", UserID: "ghost", Message: "x"}
	require.NoError(t, worker.Handle(ctx, jobs.Job{ID: unknown.ID, Payload: unknown}))
	assert.Len(t, mail.sent, 1)

	mail.err = errors.New("smtp down")
	require.NoError(t, worker.Handle(ctx, jobs.Job{ID: "n-3", Payload: &models.Notification{ID: "n-3", UserID: "stu-1"}}))

	store.failing = errors.New("db down")
	require.Error(t, worker.Handle(ctx, jobs.Job{ID: "n-4", Payload: &models.Notification{ID: "n-4", UserID: "stu-1"}}))

	require.NoError(t, worker.Handle(ctx, jobs.Job{ID: "bad", Payload: "not a notification"}))
	assert.Equal(t, []string{"delivered", "delivered", "delivered", "failed"}, metrics.outcomes)
}

func TestNotificationQueueEndToEnd(t *testing.T) {
	store := &notificationStoreStub{}
	worker := NewNotificationWorker(store, nil, nil, nil, nil)
	queue := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{Workers: 2, BufferSize: 8, MaxRetries: -1})
	queue.Start(context.Background())
	svc := NewNotificationService(store, queue, nil, nil, time.Second)

	for i := 0; i < 5; i++ {
		svc.Notify("stu-1", "update", models.SeverityInfo)
	}
	queue.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.created, 5)
}
