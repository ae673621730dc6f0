package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/middleware"
	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/service"
	"github.com/noah-isme/enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/enrollment-api/pkg/middleware/requestid"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	// Verifier enables bearer auth on mutating routes when non-nil.
	Verifier *middleware.TokenVerifier

	Students *StudentHandler
	Courses  *CourseHandler
	Metrics  *MetricsHandler
	Observer *service.MetricsService
	Logger   *zap.Logger
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	if cfg.Observer != nil {
		r.Use(middleware.Metrics(cfg.Observer))
	}

	r.GET("/health", cfg.Metrics.Health)
	r.GET("/ready", cfg.Metrics.Ready)
	if cfg.Observer != nil {
		r.GET("/metrics", cfg.Metrics.Prometheus)
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	if cfg.Observer != nil {
		api.GET("/metrics/summary", cfg.Metrics.Summary)
	}
	api.GET("/courses", cfg.Courses.List)

	students := api.Group("/students")
	students.GET("", cfg.Students.List)
	students.GET("/export", cfg.Students.Export)
	students.GET("/:id", cfg.Students.Get)

	authEnabled := cfg.Verifier != nil
	writes := students.Group("")
	writes.Use(middleware.JWT(cfg.Verifier))
	writes.Use(middleware.RequireRoles(authEnabled, models.RoleAdmin, models.RoleRegistrar))
	writes.POST("", middleware.Audit(log, "student.register"), cfg.Students.Register)
	writes.PUT("/:id", middleware.Audit(log, "student.edit_personal_info"), cfg.Students.EditPersonalInfo)
	writes.DELETE("/:id", middleware.Audit(log, "student.unregister"), cfg.Students.Unregister)
	writes.POST("/:id/enrollments", middleware.Audit(log, "student.enroll"), cfg.Students.Enroll)
	writes.PUT("/:id/enrollments/:number", middleware.Audit(log, "student.transfer"), cfg.Students.Transfer)
	writes.POST("/:id/enrollments/:number/deletion", middleware.Audit(log, "student.disenroll"), cfg.Students.Disenroll)

	return r
}
