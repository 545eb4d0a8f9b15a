package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of periodic maintenance work.
type Task struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler runs maintenance tasks on cron schedules in UTC with seconds precision.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
}

// NewScheduler constructs a scheduler; timeout bounds each task run.
func NewScheduler(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithSeconds()),
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a task. Invalid schedules are returned as errors.
func (s *Scheduler) Register(task Task) error {
	_, err := s.cron.AddFunc(task.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		if err := task.Run(ctx); err != nil {
			s.logger.Error("scheduled task failed", zap.String("task", task.Name), zap.Error(err))
			return
		}
		s.logger.Debug("scheduled task finished", zap.String("task", task.Name), zap.Duration("took", time.Since(start)))
	})
	return err
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
