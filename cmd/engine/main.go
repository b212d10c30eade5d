package main

import (
	"context"
	"log"
	"os"

	"github.com/rawblock/ra-engine/internal/api"
	"github.com/rawblock/ra-engine/internal/db"
	"github.com/rawblock/ra-engine/internal/jobs"
)

func main() {
	log.Println("Starting RawBlock Reconstructability Analysis Engine (Microservice: ra-model-search)...")
	log.Println("Initializing dataset registry and search scheduler...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values. Use a .env file for local
	// development: cp .env.example .env && edit .env
	// ────────────────────────────────────────────────────────────────────

	dbUrl := requireEnv("DATABASE_URL")

	dbConn, err := db.Connect(dbUrl)
	if err != nil {
		log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting analysis results. Error: %v", err)
		dbConn = nil
	} else {
		defer dbConn.Close()
		if err := dbConn.InitSchema(); err != nil {
			log.Printf("Warning: DB schema init failed: %v", err)
		}
	}

	// Setup WebSocket Hub
	wsHub := api.NewHub()
	go wsHub.Run()

	// Dataset registry, warm-loaded from persisted specs
	datasets := api.NewDatasetRegistry()
	if dbConn != nil {
		specs, err := dbConn.LoadDatasetSpecs(context.Background())
		if err != nil {
			log.Printf("Warning: failed to warm-load datasets: %v", err)
		} else {
			for id, spec := range specs {
				if _, err := datasets.RegisterWithID(id, spec); err != nil {
					log.Printf("Warning: skipping stored dataset %s: %v", id, err)
					continue
				}
			}
			if len(specs) > 0 {
				log.Printf("Warm-loaded %d datasets into the registry", len(specs))
			}
		}
	}

	// Search runner with real-time WebSocket progress broadcasting
	searchRunner := jobs.NewSearchRunner(dbConn, api.BroadcastProgress(wsHub))

	// Setup the Gin Router
	r := api.SetupRouter(dbConn, wsHub, searchRunner, datasets)

	port := getEnvOrDefault("PORT", "5340")

	// Start the server
	log.Printf("Engine running on :%s (API Node: ra-model-search)\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
// This prevents the binary from starting with missing critical configuration.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set. "+
			"Copy .env.example to .env and fill in your values: cp .env.example .env", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
