package api

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/ra-engine/internal/db"
	"github.com/rawblock/ra-engine/internal/jobs"
)

// maxSearchLevels caps a single search request to prevent runaway resource
// exhaustion from unconstrained requests.
const maxSearchLevels = 20

// maxSearchWidth caps the beam width per level.
const maxSearchWidth = 64

type APIHandler struct {
	dbStore      *db.PostgresStore
	wsHub        *Hub
	searchRunner *jobs.SearchRunner
	datasets     *DatasetRegistry
}

func SetupRouter(dbStore *db.PostgresStore, wsHub *Hub, searchRunner *jobs.SearchRunner, datasets *DatasetRegistry) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://rawblock.net,https://www.rawblock.net
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			// Check if the request origin is in the allowed list
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		dbStore:      dbStore,
		wsHub:        wsHub,
		searchRunner: searchRunner,
		datasets:     datasets,
	}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/search/:id", handler.handleGetSearchRun)
	}

	// ── Protected endpoints (require bearer token if API_AUTH_TOKEN set) ──
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	// Rate-limit protected endpoints to 30 req/min per IP (burst=5).
	// Fit and search requests are CPU-bound — especially important here.
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.POST("/datasets", handler.handleCreateDataset)
		auth.GET("/datasets/:id", handler.handleGetDataset)
		auth.POST("/datasets/:id/fit", handler.handleFitModel)
		auth.POST("/datasets/:id/residuals", handler.handleResiduals)
		auth.POST("/datasets/:id/validate", handler.handleValidateSpec)
		auth.POST("/datasets/:id/search", handler.handleStartSearch)
		auth.POST("/search/:id/cancel", handler.handleCancelSearch)
	}

	// Serve Static Dashboard
	r.Static("/dashboard", "./public")

	return r
}
