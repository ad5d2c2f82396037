// Package router mounts the portal HTTP surface on a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/handler"
	"github.com/noah-isme/portal-sabido-api/internal/middleware"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/service"
	"github.com/noah-isme/portal-sabido-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/portal-sabido-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/portal-sabido-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth           *handler.AuthHandler
	InstructorCode *handler.InstructorCodeHandler
	User           *handler.UserHandler
	Dashboard      *handler.DashboardHandler
	Announcement   *handler.AnnouncementHandler
	Student        *handler.StudentHandler
	Metrics        *handler.MetricsHandler
}

// Options configures the engine.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Sessions       middleware.SessionAuthenticator
}

// New builds the engine with the shared middleware chain and all routes.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.GET("/metrics/summary", h.Metrics.Summary)

	codes := api.Group("/instructor-codes")
	codes.GET("/new", h.InstructorCode.New)
	codes.GET("/:code", h.InstructorCode.Validate)

	auth := api.Group("/auth")
	auth.POST("/register/student", h.Auth.RegisterStudent)
	auth.POST("/register/instructor", h.Auth.RegisterInstructor)
	auth.POST("/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.Session(opts.Sessions))
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/me", h.User.Me)
	secured.PATCH("/me", h.User.UpdateMe)
	secured.GET("/dashboard", h.Dashboard.Get)

	instructorOnly := middleware.RequireRole(models.RoleInstructor)
	studentOnly := middleware.RequireRole(models.RoleStudent)

	announcements := secured.Group("/announcements")
	announcements.GET("", h.Announcement.List)
	announcements.POST("", instructorOnly, h.Announcement.Create)
	announcements.POST("/:id/view", studentOnly, h.Announcement.View)
	announcements.POST("/:id/acknowledge", studentOnly, h.Announcement.Acknowledge)

	students := secured.Group("/students", instructorOnly)
	students.GET("", h.Student.List)
	students.GET("/export", h.Student.Export)
	students.PATCH("/:id", h.Student.Update)

	return r
}
