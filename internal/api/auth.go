package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// Bearer-token authentication for the dataset, fit and search endpoints.
//
// The token comes from API_AUTH_TOKEN. When set, every dataset endpoint
// (including dataset reads), fitting, search launches and cancellation
// require: Authorization: Bearer <token>. Health, the WebSocket stream and
// search-run reads stay public.

const bearerPrefix = "Bearer "

// bearerToken extracts the credential from an Authorization header value.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}

// AuthMiddleware validates bearer tokens on the protected route group.
// With API_AUTH_TOKEN unset every request passes (dev mode); in
// GIN_MODE=release that combination is loudly flagged because it leaves
// the CPU-bound analysis endpoints open to anyone.
func AuthMiddleware() gin.HandlerFunc {
	token := os.Getenv("API_AUTH_TOKEN")
	if token == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("[Auth] WARNING: API_AUTH_TOKEN is not set in release mode; " +
			"dataset, fit and search endpoints are publicly reachable. " +
			"Set API_AUTH_TOKEN to enforce authentication.")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing Authorization header",
				"hint":  "Use: Authorization: Bearer <API_AUTH_TOKEN>",
			})
			c.Abort()
			return
		}

		presented, ok := bearerToken(header)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid Authorization header format"})
			c.Abort()
			return
		}

		// constant-time comparison so a mismatch reveals nothing about
		// how much of the token was right
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IsSyntheticEnabled returns true if ENABLE_SYNTHETIC=true is set.
// Synthetic dataset generation (POST /datasets with {"synthetic": true})
// is disabled by default in production to prevent data poisoning.
func IsSyntheticEnabled() bool {
	return os.Getenv("ENABLE_SYNTHETIC") == "true"
}
