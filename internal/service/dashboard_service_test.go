package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type registrationStub struct {
	counts []models.RegistrationCount
	calls  int
	err    error
}

func (r *registrationStub) MonthlyRegistrations(context.Context) ([]models.RegistrationCount, error) {
	r.calls++
	return r.counts, r.err
}

type memoryCache struct {
	items map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func TestCumulativeRegistrations(t *testing.T) {
	counts := []models.RegistrationCount{
		{Month: "2024-02", Role: models.RoleStudent, Count: 3},
		{Month: "2024-01", Role: models.RoleStudent, Count: 5},
		{Month: "2024-01", Role: models.RoleLecturer, Count: 1},
		{Month: "2024-03", Role: models.RoleAdmin, Count: 1},
	}
	points := CumulativeRegistrations(counts)
	require.Len(t, points, 9)

	byRole := map[models.UserRole][]int{}
	for _, p := range points {
		byRole[p.Role] = append(byRole[p.Role], p.Cumulative)
	}
	assert.Equal(t, []int{0, 0, 1}, byRole[models.RoleAdmin])
	assert.Equal(t, []int{1, 1, 1}, byRole[models.RoleLecturer])
	assert.Equal(t, []int{5, 8, 8}, byRole[models.RoleStudent])
	assert.Equal(t, "2024-01", points[0].Month)
	assert.Equal(t, "2024-03", points[2].Month)

	assert.Empty(t, CumulativeRegistrations(nil))
}

func TestRegistrationChartUsesCache(t *testing.T) {
	source := &registrationStub{counts: []models.RegistrationCount{{Month: "2024-01", Role: models.RoleStudent, Count: 2}}}
	cache := &memoryCache{items: map[string][]byte{}}
	svc := NewDashboardService(source, cache, time.Minute, nil, time.Second)
	ctx := context.Background()

	_, _, err := svc.RegistrationChart(ctx, studentActor)
	requireCode(t, err, appErrors.ErrAuthorization)

	first, hit, err := svc.RegistrationChart(ctx, adminActor)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first, 3)

	second, hit, err := svc.RegistrationChart(ctx, adminActor)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls)
}

func TestRegistrationChartStoreFailure(t *testing.T) {
	source := &registrationStub{err: errors.New("connection refused")}
	svc := NewDashboardService(source, nil, 0, nil, time.Second)

	_, _, err := svc.RegistrationChart(context.Background(), adminActor)
	requireCode(t, err, appErrors.ErrStore)
}
