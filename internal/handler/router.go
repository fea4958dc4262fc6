package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classtrackhq/classtrack-api/internal/middleware"
	"github.com/classtrackhq/classtrack-api/internal/models"
	"github.com/classtrackhq/classtrack-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Semester   *SemesterHandler
	Student    *StudentHandler
	Class      *ClassHandler
	Session    *SessionHandler
	Enrollment *EnrollmentHandler
	Attendance *AttendanceHandler
	Report     *ReportHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts every endpoint under the API prefix. Staff-only
// mutations require ADMIN (or SUPER_ADMIN); reads are open to any
// authenticated role, with row scoping enforced by the repositories.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	if prefix == "" {
		prefix = "/api/v1"
	}

	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	teaching := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleInstructor, models.RoleTA)

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", middleware.JWT(auth), h.Auth.Logout)
		authGroup.GET("/me", middleware.JWT(auth), h.Auth.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))

	semesters := protected.Group("/semesters")
	{
		semesters.GET("", h.Semester.List)
		semesters.GET("/:id", h.Semester.Get)
		semesters.POST("", staff, h.Semester.Create)
		semesters.PUT("/:id", staff, h.Semester.Update)
		semesters.DELETE("/:id", staff, h.Semester.Delete)
		semesters.GET("/:id/holidays", h.Semester.ListHolidays)
		semesters.POST("/:id/holidays", staff, h.Semester.AddHoliday)
		semesters.DELETE("/:id/holidays/:holidayId", staff, h.Semester.RemoveHoliday)
	}

	students := protected.Group("/students")
	{
		students.GET("", h.Student.List)
		students.GET("/:id", h.Student.Get)
		students.POST("", staff, h.Student.Create)
		students.PUT("/:id", staff, h.Student.Update)
		students.PATCH("/:id/active", staff, h.Student.SetActive)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", h.Class.List)
		classes.GET("/:id", h.Class.Get)
		classes.POST("", staff, h.Class.Create)
		classes.DELETE("/:id", staff, h.Class.Delete)
		classes.PUT("/:id/schedule", staff, h.Class.UpdateSchedule)
		classes.GET("/:id/sessions", h.Session.ListByClass)
		classes.POST("/:id/sessions/generate", staff, h.Class.RegenerateSessions)
		classes.GET("/:id/assistants", h.Class.ListAssistants)
		classes.POST("/:id/assistants", staff, h.Class.AddAssistant)
		classes.GET("/:id/attendance/summary", teaching, h.Attendance.Summary)
	}

	sessions := protected.Group("/sessions")
	{
		sessions.GET("", h.Session.List)
		sessions.GET("/:id", h.Session.Get)
		sessions.PATCH("/:id", teaching, h.Session.Update)
		sessions.DELETE("/:id", staff, h.Session.Delete)
	}

	enrollments := protected.Group("/enrollments")
	{
		enrollments.GET("", h.Enrollment.List)
		enrollments.GET("/:id", h.Enrollment.Get)
		enrollments.POST("", staff, h.Enrollment.Enroll)
		enrollments.DELETE("/:id", staff, h.Enrollment.Drop)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.POST("/scan", teaching, h.Attendance.Scan)
		attendance.GET("", teaching, h.Attendance.List)
		attendance.POST("", teaching, h.Attendance.Create)
		attendance.PATCH("/:id", teaching, h.Attendance.Update)
	}

	reports := protected.Group("/reports")
	{
		reports.POST("", teaching, h.Report.Create)
		reports.GET("/:id", teaching, h.Report.Status)
	}
	protected.GET("/system/metrics", staff, h.Metrics.System)

	// Download tokens carry their own HMAC auth.
	api.GET("/reports/download/:token", h.Report.Download)
}
