package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fileResolverMock struct {
	file *service.StoredFile
	err  error
}

func (m *fileResolverMock) Resolve(string) (*service.StoredFile, error) {
	return m.file, m.err
}

func TestFileHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFileHandler(&fileResolverMock{file: &service.StoredFile{Name: "statement.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}})

	c, w := newGinContext(http.MethodGet, "/files/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "statement.pdf")
	assert.Equal(t, "%PDF", w.Body.String())

	handler = NewFileHandler(&fileResolverMock{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")})
	c, w = newGinContext(http.MethodGet, "/files/bad", nil)
	handler.Download(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

type dashboardServiceMock struct {
	hit bool
}

func (m *dashboardServiceMock) RegistrationChart(context.Context, *models.Actor) ([]models.RegistrationPoint, bool, error) {
	return []models.RegistrationPoint{{Month: "2024-01", Role: models.RoleStudent, Registered: 2, Cumulative: 2}}, m.hit, nil
}

func TestDashboardHandlerReportsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&dashboardServiceMock{hit: true})

	c, w := newGinContext(http.MethodGet, "/dashboard/registrations", nil)
	withActor(c, "admin-1", models.RoleAdmin)
	c.Set("response_meta", map[string]interface{}{})

	handler.Registrations(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, true, middleware.ExtractMeta(c)["cache_hit"])
}

type notificationServiceMock struct {
	unread bool
	limit  int
	marked string
}

func (m *notificationServiceMock) List(_ context.Context, _ *models.Actor, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.unread = unreadOnly
	m.limit = limit
	return []models.Notification{}, nil
}

func (m *notificationServiceMock) MarkRead(_ context.Context, _ *models.Actor, id string) error {
	m.marked = id
	return nil
}

func TestNotificationHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &notificationServiceMock{}
	handler := NewNotificationHandler(svc)

	c, w := newGinContext(http.MethodGet, "/notifications?unread=true&limit=5", nil)
	withActor(c, "stu-1", models.RoleStudent)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.unread)
	assert.Equal(t, 5, svc.limit)

	c, w = newGinContext(http.MethodGet, "/notifications?limit=many", nil)
	withActor(c, "stu-1", models.RoleStudent)
	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/notifications/n-1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	withActor(c, "stu-1", models.RoleStudent)
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "n-1", svc.marked)
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, w := newGinContext(http.MethodGet, "/health", nil)
	NewMetricsHandler(nil, pingerStub{}).Health(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/health", nil)
	NewMetricsHandler(nil, pingerStub{err: errors.New("down")}).Health(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
