package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	apierrors "github.com/insighted/schoolprofile/internal/errors"
	"github.com/insighted/schoolprofile/internal/logger"
	"github.com/insighted/schoolprofile/internal/metrics"
	"github.com/insighted/schoolprofile/internal/middleware"
	"github.com/insighted/schoolprofile/internal/services"
)

// RouterConfig holds everything the HTTP router is built from.
type RouterConfig struct {
	Logger           *logger.Logger
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	CORSOrigins      []string
	ServiceName      string
	Health           *HealthHandler
	ReferenceService services.ReferenceService
	ProfileService   services.ProfileService
}

// NewRouter builds the gin engine with middleware and all API routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// RequestID -> Logger -> Recovery -> CORS -> Submitter -> Metrics -> Tracing
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Recovery(cfg.Logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.Submitter())
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	router.GET("/health", cfg.Health.Health)
	router.GET("/health/ready", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	referenceHandler := NewReferenceHandler(cfg.ReferenceService)
	profileHandler := NewProfileHandler(cfg.ProfileService)
	projectHandler := NewProjectHandler(cfg.ProfileService)
	dashboardHandler := NewDashboardHandler(cfg.ProfileService)

	requireSubmitter := middleware.RequireSubmitter(apierrors.Unauthorized)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", cfg.Health.Info)

		ref := v1.Group("/reference")
		{
			ref.GET("/options", referenceHandler.Options)
			ref.GET("/divisions/:division/districts", referenceHandler.Districts)
			ref.GET("/resolve", referenceHandler.Resolve)
			ref.POST("/normalize", referenceHandler.Normalize)
			ref.GET("/status", referenceHandler.Status)
			ref.POST("/reload", requireSubmitter, referenceHandler.Reload)
		}

		schools := v1.Group("/schools/:schoolId")
		{
			schools.GET("", profileHandler.Get)
			schools.GET("/exists", profileHandler.Exists)
			schools.PUT("", requireSubmitter, profileHandler.Submit)
			schools.PATCH("/enrollment", requireSubmitter, profileHandler.AmendEnrollment)
			schools.GET("/projects", projectHandler.List)
			schools.POST("/projects", requireSubmitter, projectHandler.Create)
			schools.PATCH("/projects/:projectId", requireSubmitter, projectHandler.Update)
		}

		v1.GET("/submitters/:submitterId/school", profileHandler.BySubmitter)
		v1.GET("/activities", dashboardHandler.Activities)

		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/schools", dashboardHandler.Schools)
			dashboard.GET("/projects", dashboardHandler.Projects)
		}
	}

	return router
}
