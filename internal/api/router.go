package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/penstream/broadcast/internal/api/handler"
	"github.com/penstream/broadcast/internal/api/middleware"
	"github.com/penstream/broadcast/internal/config"
	"github.com/penstream/broadcast/internal/logger"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	cfg *config.Config,
	log *logger.Logger,
	proxyHandler *handler.ProxyHandler,
	queueHandler *handler.QueueHandler,
	limiter *middleware.RateLimiter,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))
	r.Use(middleware.NoCache())

	healthHandler := handler.NewHealthHandler()

	// Health check
	r.GET("/health", healthHandler.Health)

	// Delivery proxy, rate limited per client IP
	proxy := r.Group("/")
	if limiter != nil {
		proxy.Use(middleware.RateLimit(limiter))
	}
	proxy.GET("/proxy_video", proxyHandler.Proxy)

	// Playout sync from the broadcast screen
	r.POST("/sync", queueHandler.Sync)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/queue", queueHandler.GetQueue)
		v1.POST("/queue", queueHandler.AddItem)
	}

	// Generated assets (queue JSON, audio, stills)
	r.Static("/bucket", cfg.Server.BucketDir)

	// Overlay pages. Unknown paths fall back to the broadcast screen so the
	// mixer can point at the server root.
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		serveStatic(c, cfg.Server.StaticDir)
	})

	return r
}

// serveStatic answers GET requests from the static overlay directory,
// refusing any path that escapes it.
func serveStatic(c *gin.Context, staticDir string) {
	reqPath := strings.TrimPrefix(c.Request.URL.Path, "/")
	if reqPath == "" {
		reqPath = "broadcast_screen.html"
	}

	full := filepath.Join(staticDir, filepath.Clean("/"+reqPath))
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		c.File(full)
		return
	}

	fallback := filepath.Join(staticDir, "broadcast_screen.html")
	if _, err := os.Stat(fallback); err == nil {
		c.File(fallback)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}
