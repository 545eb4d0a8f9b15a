package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// withStoreTimeout bounds a record store round trip.
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError keeps typed errors and wraps anything else as STORE_ERROR.
func storeError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Store(err, message)
}

func validateStruct(v *validator.Validate, req interface{}) error {
	if err := v.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return appErrors.Clone(appErrors.ErrValidation, "invalid payload")
	}
	return nil
}

func requireActor(actor *models.Actor) error {
	if actor == nil || strings.TrimSpace(actor.UserID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "submitter identity is required")
	}
	return nil
}

func requireRole(actor *models.Actor, roles ...models.UserRole) error {
	if actor == nil {
		return appErrors.ErrAuthorization
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return appErrors.ErrAuthorization
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

// validAmount accepts finite, strictly positive money values.
func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
