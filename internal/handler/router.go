package handler

import (
	"time"

	"cleaning-duty/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth     *AuthHandler
	Me       *MeHandler
	Calendar *CalendarHandler
	Admin    *AdminHandler
}

// Register mounts the API on r. Everything except the auth callback needs a
// session token; /api/admin also needs an active admin.
func Register(r *gin.Engine, h Handlers, secret []byte, ttl time.Duration, members middleware.MemberLookup) {
	r.POST("/api/auth/callback", h.Auth.Callback)

	api := r.Group("/api", middleware.JWTAuth(secret, ttl))
	api.GET("/me", h.Me.Me)
	api.GET("/me/next", h.Me.Next)
	api.GET("/calendar/:month", h.Calendar.Grid)
	api.GET("/calendar/:month/schedules", h.Calendar.Schedules)
	api.GET("/calendar/:month/stream", h.Calendar.Stream)
	api.GET("/schedules/:id", h.Calendar.Entry)
	api.POST("/schedules/:id/complete", h.Calendar.Complete)

	admin := api.Group("/admin", middleware.AdminOnly(members))
	admin.GET("/stats", h.Admin.Stats)

	admin.GET("/departments", h.Admin.ListDepartments)
	admin.POST("/departments", h.Admin.CreateDepartment)
	admin.PUT("/departments/:id", h.Admin.UpdateDepartment)
	admin.DELETE("/departments/:id", h.Admin.DeleteDepartment)

	admin.GET("/areas", h.Admin.ListAreas)
	admin.POST("/areas", h.Admin.CreateArea)
	admin.PUT("/areas/:id", h.Admin.UpdateArea)
	admin.DELETE("/areas/:id", h.Admin.DeleteArea)

	admin.GET("/tasks", h.Admin.ListTasks)
	admin.POST("/tasks", h.Admin.CreateTask)
	admin.PUT("/tasks/:id", h.Admin.UpdateTask)
	admin.DELETE("/tasks/:id", h.Admin.DeleteTask)

	admin.GET("/members", h.Admin.ListMembers)
	admin.POST("/members", h.Admin.CreateMember)
	admin.PUT("/members/:id", h.Admin.UpdateMember)
	admin.DELETE("/members/:id", h.Admin.DeleteMember)

	admin.POST("/schedules/generate", h.Admin.Generate)
	admin.POST("/schedules/assign", h.Admin.Assign)
}
