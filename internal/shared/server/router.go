package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docsense-backend/internal/services/health"
	"docsense-backend/internal/shared/config"
	"docsense-backend/internal/shared/metrics"
	"docsense-backend/internal/shared/server/middleware"
	"docsense-backend/internal/shared/server/respond"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupIngest  = "INGEST"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers mounted under /api/v1.
type RouterDeps struct {
	Config   config.Config
	Handlers []RouteRegistrar
	Limiter  *middleware.RateLimiter
	Health   *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthz := healthHandler(deps.Health)
	r.GET("/health", healthz)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthz)
	api.Use(
		middleware.Identity(),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.Limiter,
			Rules:        rateRules(deps.Config),
		}),
	)
	registerMeRoutes(api)
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep := svc.Status(c.Request.Context())
		status := http.StatusOK
		if !rep.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, rep)
	}
}

// rateGroupFor puts every route that triggers LLM work into the ingest bucket.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupDefault
	}
	path := c.FullPath()
	switch {
	case path == "/api/v1/documents/upload",
		path == "/api/v1/documents/classify",
		strings.HasPrefix(path, "/api/v1/text/"):
		return rateGroupIngest
	default:
		return rateGroupDefault
	}
}

func rateRules(cfg config.Config) map[string]middleware.RateLimitRule {
	rules := map[string]middleware.RateLimitRule{}
	if cfg.UploadRatePerMinute > 0 && cfg.UploadBurst > 0 {
		rules[rateGroupIngest] = middleware.RateLimitRule{
			Rate:  cfg.UploadRatePerMinute / 60.0,
			Burst: cfg.UploadBurst,
		}
	}
	return rules
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
