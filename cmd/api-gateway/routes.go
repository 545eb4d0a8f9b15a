package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/config"
)

func registerRoutes(r *gin.Engine, cfg *config.Config, a *app) {
	r.GET("/health", a.ops.Health)
	r.GET("/metrics", a.ops.Prometheus)
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	// Signed tokens authorise downloads on their own.
	api.GET("/files/:token", a.files.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(a.auth))

	admin := middleware.RequireRoles(models.RoleAdmin)
	lecturerOrAdmin := middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin)
	studentOrAdmin := middleware.RequireRoles(models.RoleStudent, models.RoleAdmin)

	attendance := secured.Group("/attendance/submissions")
	{
		approvals := a.approvals[models.BatchKindAttendance]
		attendance.POST("", middleware.RequireRoles(models.RoleLecturer), a.attendance.Submit)
		attendance.GET("", lecturerOrAdmin, approvals.List)
		attendance.GET("/:id", lecturerOrAdmin, approvals.Get)
		attendance.GET("/:id/records", lecturerOrAdmin, a.attendance.Records)
		attendance.GET("/:id/export", lecturerOrAdmin, a.attendance.Export)
		attendance.POST("/:id/review", admin, approvals.Review)
	}

	enrollment := secured.Group("/enrollment-requests")
	{
		approvals := a.approvals[models.BatchKindEnrollment]
		enrollment.POST("", middleware.RequireRoles(models.RoleStudent), a.enrollment.Create)
		enrollment.GET("", studentOrAdmin, approvals.List)
		enrollment.POST("/:id/review", admin, approvals.Review)
	}

	hostel := secured.Group("/hostel")
	{
		approvals := a.approvals[models.BatchKindHostel]
		hostel.GET("/rooms", a.hostel.Rooms)
		hostel.POST("/rooms/:id/assignments", admin, a.hostel.Assign)
		hostel.POST("/assignments/:id/vacate", admin, a.hostel.Vacate)
		hostel.POST("/bookings", middleware.RequireRoles(models.RoleStudent), a.hostel.Book)
		hostel.GET("/bookings", studentOrAdmin, approvals.List)
		hostel.POST("/bookings/:id/cancel", middleware.RequireRoles(models.RoleStudent), approvals.Cancel)
		hostel.POST("/bookings/:id/review", admin, approvals.Review)
	}

	fees := secured.Group("/fees")
	{
		approvals := a.approvals[models.BatchKindFee]
		fees.POST("/payments", middleware.RequireRoles(models.RoleStudent), a.fees.SubmitPayment)
		fees.GET("/payments", studentOrAdmin, approvals.List)
		fees.GET("/payments/:id/slip", studentOrAdmin, a.fees.Slip)
		fees.POST("/payments/:id/review", admin, approvals.Review)
		fees.GET("/accounts/:studentId", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), a.fees.Account)
		fees.GET("/accounts/:studentId/statement", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), a.fees.Statement)
	}

	secured.POST("/submissions/:id/grade", middleware.RequireRoles(models.RoleLecturer), a.grades.Grade)
	secured.GET("/students/:id/gpa", middleware.RBAC(string(models.RoleAdmin), string(models.RoleLecturer), middleware.RoleSelf), a.grades.GPA)

	secured.GET("/dashboard/registrations", admin, a.dashboard.Registrations)

	secured.GET("/notifications", a.notifications.List)
	secured.POST("/notifications/:id/read", a.notifications.MarkRead)
}
