package main

import (
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"amazon-ads-analyzer/internal/api"
	"amazon-ads-analyzer/internal/config"
	"amazon-ads-analyzer/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	// Run-history store is optional; the dashboard works without it.
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if db == nil {
		log.Println("DATABASE_URL not set, run history disabled")
	}

	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Serve static dashboard assets from the build directory
	r.Static("/static", filepath.Join(cfg.WebDir, "static"))
	r.StaticFile("/favicon.ico", filepath.Join(cfg.WebDir, "favicon.ico"))
	r.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(cfg.WebDir, "index.html"))
	})
	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// SPA fallback for client-side routing
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.URL.Path == "/ws" || strings.HasPrefix(c.Request.URL.Path, "/static/") {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(filepath.Join(cfg.WebDir, "index.html"))
	})

	// API routes
	apiGroup := r.Group("/api/v1")
	handler := api.SetupRoutes(apiGroup, db, cfg)

	// Pipeline progress stream
	r.GET("/ws", handler.WS)

	log.Printf("Dashboard starting on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
