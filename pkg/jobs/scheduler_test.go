package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(nil, time.Second)
	err := s.Register(Task{Name: "bad", Schedule: "not a cron", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
}

func TestSchedulerRunsTask(t *testing.T) {
	s := NewScheduler(nil, time.Second)
	var runs int32
	require.NoError(t, s.Register(Task{Name: "tick", Schedule: "* * * * * *", Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}))
	s.Start()
	defer s.Stop()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) > 0 }, 3*time.Second, 50*time.Millisecond)
}
