package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/escolar-api/internal/middleware"
	"github.com/noah-isme/escolar-api/internal/models"
	"github.com/noah-isme/escolar-api/internal/service"
)

// Handlers bundles every route handler for registration.
type Handlers struct {
	Auth          *AuthHandler
	Students      *StudentHandler
	Teachers      *TeacherHandler
	Classes       *ClassHandler
	Enrollments   *EnrollmentHandler
	Directory     *DirectoryHandler
	Lifecycle     *LifecycleHandler
	Notifications *NotificationHandler
	Attendance    *AttendanceHandler
	Admin         *AdminHandler
	Exports       *ExportHandler
}

// RegisterRoutes mounts the API under the given prefix. Everything except
// login and signed export downloads requires a valid token; the lifecycle
// and admin groups additionally require an admin role on top of the in-band
// password gate.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.GET("/exports/:token", h.Exports.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))

	protected.GET("/auth/me", h.Auth.Me)

	protected.GET("/students", h.Students.List)
	protected.GET("/students/export", h.Students.ExportCSV)
	protected.GET("/students/export/link", h.Students.ExportCSVLink)
	protected.GET("/students/:id", h.Students.Get)
	protected.POST("/students", h.Students.Create)
	protected.PUT("/students/:id", h.Students.Update)
	protected.DELETE("/students/:id", h.Students.Delete)

	protected.GET("/teachers", h.Teachers.List)
	protected.GET("/teachers/:id", h.Teachers.Get)
	protected.POST("/teachers", h.Teachers.Create)
	protected.PUT("/teachers/:id", h.Teachers.Update)
	protected.DELETE("/teachers/:id", h.Teachers.Delete)

	protected.GET("/classes", h.Classes.List)
	protected.GET("/classes/:id", h.Classes.Get)
	protected.POST("/classes", h.Classes.Create)
	protected.PUT("/classes/:id", h.Classes.Update)
	protected.DELETE("/classes/:id", h.Classes.Delete)
	protected.GET("/classes/:id/roster", h.Classes.Roster)
	protected.GET("/classes/:id/roster/pdf", h.Classes.RosterPDF)
	protected.POST("/classes/:id/roster/export", h.Classes.RosterExport)
	protected.GET("/classes/:id/eligible", h.Classes.Eligible)

	protected.GET("/enrollments", h.Enrollments.List)
	protected.POST("/enrollments", h.Enrollments.Enroll)
	protected.POST("/enrollments/group", h.Enrollments.EnrollGroup)
	protected.DELETE("/enrollments/:id", h.Enrollments.Unenroll)

	protected.GET("/directory/distribution", h.Directory.Distribution)
	protected.GET("/directory/students/:id", h.Directory.StudentProfile)

	protected.GET("/attendance", h.Attendance.List)
	protected.POST("/attendance", h.Attendance.Record)

	protected.GET("/notifications", h.Notifications.List)
	protected.GET("/notifications/:id", h.Notifications.Get)
	protected.POST("/notifications", h.Notifications.Create)
	protected.POST("/notifications/:id/approve", h.Notifications.Approve)
	protected.POST("/notifications/:id/reject", h.Notifications.Reject)
	protected.DELETE("/notifications/:id", h.Notifications.Delete)

	lifecycle := protected.Group("/lifecycle")
	lifecycle.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	lifecycle.POST("/promote", h.Lifecycle.PromoteAll)
	lifecycle.POST("/demote", h.Lifecycle.DemoteAll)
	lifecycle.DELETE("/enrollments", h.Lifecycle.DeleteAllEnrollments)
	lifecycle.DELETE("/attendance", h.Lifecycle.DeleteAllAttendance)
	lifecycle.DELETE("/group", h.Lifecycle.DeleteGroupCascade)
	lifecycle.GET("/runs", h.Lifecycle.Runs)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	admin.GET("/snapshot", h.Admin.ExportSnapshot)
	admin.PUT("/snapshot", h.Admin.ImportSnapshot)
	admin.GET("/stats", h.Admin.Stats)
}
