package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/histochat/backend/internal/api"
	"github.com/histochat/backend/pkg/config"
	"github.com/histochat/backend/pkg/di"
	"github.com/histochat/backend/pkg/errors"
	"github.com/histochat/backend/pkg/logger"
	"github.com/histochat/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Distinguish 405 from 404 so non-POST hits on the proxy routes answer
	// the way the browser client expects
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.BodySizeLimit(cfg.Security.MaxBodySize))

	rateLimiterOpts := middleware.DefaultRateLimiterOptions()
	rateLimiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	rateLimiterOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, rateLimiterOpts)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	chatController := api.NewChatController(r.Container.GeminiClient, r.Container.ChatRetrier, r.Logger)
	ttsController := api.NewTTSController(r.Container.TTSClient, r.Container.TTSInitErr, r.Logger)
	characterController := api.NewCharacterController(r.Container.CharacterService)
	sessionController := api.NewSessionController(r.Container.SessionService)

	// API version 1 routes
	v1 := r.Engine.Group("/api/v1")

	chatController.RegisterRoutesV1(v1)
	ttsController.RegisterRoutesV1(v1)
	characterController.RegisterRoutesV1(v1)
	sessionController.RegisterRoutesV1(v1)

	// Legacy unversioned proxy routes the browser client still calls
	chatController.RegisterRoutes(r.Engine)
	ttsController.RegisterRoutes(r.Engine)

	r.setupHealthRoutes()
}

// corsMiddleware handles cross-origin requests
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && originAllowed(origin, allowedOrigins):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Cache-Control, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
