package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.seen = token
	return v.claims, v.err
}

func newJWTRouter(v tokenValidator, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(v))
	router.GET("/me", handler)
	return router
}

func TestJWTAttachesActor(t *testing.T) {
	claims := &models.JWTClaims{AppMetadata: models.JWTAppMetadata{Role: "admin"}}
	claims.Subject = "admin-1"
	stub := &validatorStub{claims: claims}

	var actor *models.Actor
	var loggedActor string
	router := newJWTRouter(stub, func(c *gin.Context) {
		actor = CurrentActor(c)
		loggedActor = c.GetString(logger.ContextActorKey)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "token-123", stub.seen)
	require.NotNil(t, actor)
	assert.Equal(t, "admin-1", actor.UserID)
	assert.Equal(t, models.RoleAdmin, actor.Role)
	assert.Equal(t, "admin-1", loggedActor)
}

func TestJWTRejectsRequests(t *testing.T) {
	noRole := &models.JWTClaims{}
	noRole.Subject = "user-1"

	cases := []struct {
		name   string
		header string
		stub   *validatorStub
	}{
		{"missing header", "", &validatorStub{}},
		{"wrong scheme", "Basic abc", &validatorStub{}},
		{"invalid token", "Bearer bad", &validatorStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}},
		{"no role", "Bearer ok", &validatorStub{claims: noRole}},
	}
	for _, tc := range cases {
		called := false
		router := newJWTRouter(tc.stub, func(c *gin.Context) {
			called = true
			c.Status(http.StatusNoContent)
		})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.name)
		assert.False(t, called, tc.name)
	}
}
