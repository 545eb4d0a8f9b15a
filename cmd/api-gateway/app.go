package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
	"github.com/noah-isme/campus-portal-api/pkg/mailer"
	"github.com/noah-isme/campus-portal-api/pkg/storage"
)

type appDeps struct {
	db    *sqlx.DB
	redis *redis.Client
	files *storage.LocalStorage
	mail  interface {
		Send(ctx context.Context, msg mailer.Message) error
	}
}

type app struct {
	auth    *service.AuthService
	metrics *service.MetricsService
	exports *service.ExportService
	queue   *jobs.Queue

	approvals     map[models.BatchKind]*handler.ApprovalHandler
	attendance    *handler.AttendanceHandler
	enrollment    *handler.EnrollmentHandler
	hostel        *handler.HostelHandler
	fees          *handler.FeeHandler
	files         *handler.FileHandler
	grades        *handler.GradeHandler
	dashboard     *handler.DashboardHandler
	notifications *handler.NotificationHandler
	ops           *handler.MetricsHandler
}

func buildApp(cfg *config.Config, logr *zap.Logger, deps appDeps) *app {
	timeout := cfg.Store.Timeout
	validate := newValidator()

	batchRepo := repository.NewBatchRepository(deps.db)
	attendanceRepo := repository.NewAttendanceRepository(deps.db)
	courseRepo := repository.NewCourseRepository(deps.db)
	hostelRepo := repository.NewHostelRepository(deps.db)
	feeRepo := repository.NewFeeRepository(deps.db)
	submissionRepo := repository.NewSubmissionRepository(deps.db)
	userRepo := repository.NewUserRepository(deps.db)
	notificationRepo := repository.NewNotificationRepository(deps.db)
	txManager := repository.NewTxManager(deps.db)

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if deps.redis != nil {
		cacheRepo = repository.NewCacheRepository(deps.redis)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	exportSvc := service.NewExportService(deps.files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.TTL,
	}, logr)

	worker := service.NewNotificationWorker(notificationRepo, userRepo, deps.mail, metricsSvc, logr)
	queue := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.Retries,
		Logger:     logr,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, queue, metricsSvc, logr, timeout)

	approvalSvc := service.NewApprovalService(batchRepo, txManager, userRepo, logr,
		service.WithBatchEffects(batchEffects(courseRepo, feeRepo)),
		service.WithNotifier(notificationSvc),
		service.WithReviewMetrics(metricsSvc),
		service.WithStoreTimeout(timeout),
	)

	attendanceSvc := service.NewAttendanceService(attendanceRepo, courseRepo, approvalSvc, txManager, exportSvc, validate, logr, timeout)
	enrollmentSvc := service.NewEnrollmentService(courseRepo, approvalSvc, validate, timeout)
	hostelSvc := service.NewHostelService(hostelRepo, approvalSvc, txManager, userRepo, notificationSvc, validate, logr, timeout)
	feeSvc := service.NewFeeService(feeRepo, batchRepo, deps.files, exportSvc, approvalSvc, service.FeeConfig{
		MaxSlipBytes: cfg.Storage.MaxUploadBytes,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
	}, logr, timeout)
	gradingSvc := service.NewGradingService(submissionRepo, userRepo, notificationSvc, logr, timeout)
	dashboardSvc := service.NewDashboardService(userRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr, timeout)

	approvals := make(map[models.BatchKind]*handler.ApprovalHandler, len(models.BatchKinds))
	for _, kind := range models.BatchKinds {
		approvals[kind] = handler.NewApprovalHandler(approvalSvc, kind)
	}

	return &app{
		auth: service.NewAuthService(service.AuthConfig{
			Secret:   cfg.JWT.Secret,
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
		}, logr),
		metrics: metricsSvc,
		exports: exportSvc,
		queue:   queue,

		approvals:     approvals,
		attendance:    handler.NewAttendanceHandler(attendanceSvc),
		enrollment:    handler.NewEnrollmentHandler(enrollmentSvc),
		hostel:        handler.NewHostelHandler(hostelSvc),
		fees:          handler.NewFeeHandler(feeSvc, cfg.Storage.MaxUploadBytes),
		files:         handler.NewFileHandler(exportSvc),
		grades:        handler.NewGradeHandler(gradingSvc),
		dashboard:     handler.NewDashboardHandler(dashboardSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		ops:           handler.NewMetricsHandler(metricsSvc, deps.db),
	}
}
