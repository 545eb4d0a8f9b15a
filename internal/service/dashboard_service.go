package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

const registrationCacheKey = "dashboard:registrations"

type registrationSource interface {
	MonthlyRegistrations(ctx context.Context) ([]models.RegistrationCount, error)
}

type chartCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService builds the admin registration chart.
type DashboardService struct {
	users        registrationSource
	cache        chartCache
	cacheTTL     time.Duration
	logger       *zap.Logger
	storeTimeout time.Duration
}

// NewDashboardService constructs the service. cache may be nil.
func NewDashboardService(users registrationSource, cache chartCache, cacheTTL time.Duration, logger *zap.Logger, storeTimeout time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{users: users, cache: cache, cacheTTL: cacheTTL, logger: logger, storeTimeout: storeTimeout}
}

// RegistrationChart returns the cumulative monthly registrations per role. The bool reports a cache hit.
func (s *DashboardService) RegistrationChart(ctx context.Context, actor *models.Actor) ([]models.RegistrationPoint, bool, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrAuthorization, "only admins can view the dashboard")
	}
	if s.cache != nil {
		var cached []models.RegistrationPoint
		hit, err := s.cache.Get(ctx, registrationCacheKey, &cached)
		if err != nil {
			s.logger.Warn("registration chart cache read failed", zap.Error(err))
		} else if hit {
			return cached, true, nil
		}
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	counts, err := s.users.MonthlyRegistrations(ctx)
	if err != nil {
		return nil, false, storeError(err, "failed to load registrations")
	}
	points := CumulativeRegistrations(counts)

	if s.cache != nil {
		if err := s.cache.Set(ctx, registrationCacheKey, points, s.cacheTTL); err != nil {
			s.logger.Warn("registration chart cache write failed", zap.Error(err))
		}
	}
	return points, false, nil
}

// CumulativeRegistrations expands raw counts into a chronological running total for every
// role and every month seen, so each role series has the same months.
func CumulativeRegistrations(counts []models.RegistrationCount) []models.RegistrationPoint {
	monthSet := make(map[string]struct{})
	byKey := make(map[string]int)
	for _, c := range counts {
		monthSet[c.Month] = struct{}{}
		byKey[string(c.Role)+"|"+c.Month] += c.Count
	}
	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Strings(months)

	points := make([]models.RegistrationPoint, 0, len(months)*len(models.Roles))
	for _, role := range models.Roles {
		running := 0
		for _, month := range months {
			registered := byKey[string(role)+"|"+month]
			running += registered
			points = append(points, models.RegistrationPoint{
				Month:      month,
				Role:       role,
				Registered: registered,
				Cumulative: running,
			})
		}
	}
	return points
}
