// cmd/server/main.go
package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"silicoshield/internal/analysis"
	"silicoshield/internal/auth"
	"silicoshield/internal/config"
	"silicoshield/internal/geo"
	"silicoshield/internal/handlers"
	"silicoshield/internal/middleware"
	"silicoshield/internal/prediction"
	"silicoshield/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	predictor := prediction.NewClient(cfg.APIBaseURL, cfg.APIKey, cfg.PredictTimeout)
	authClient := auth.NewClient(cfg.APIBaseURL, 0)
	gate := auth.NewGate(cfg.GatePassword, cfg.GateDelay)
	resolver := geo.NewResolver(cfg.GeoTimeout, cfg.SessionTTL)
	manager := store.NewManager(cfg.SessionTTL)
	orchestrator := analysis.New(predictor)

	// Initialize Gin router
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	// Session cookie without MaxAge: cleared when the browsing session
	// ends, like the original sessionStorage gate.
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{Path: "/", HttpOnly: true})
	r.Use(sessions.Sessions("silicoshield", sessionStore))

	// Public routes
	public := r.Group("/api")
	{
		public.GET("/health", handlers.Health(predictor))
		public.POST("/auth/gate", handlers.Gate(gate))
		public.POST("/auth/login", handlers.Login(authClient))
		public.POST("/auth/logout", handlers.Logout(manager))
		public.GET("/auth/session", handlers.Session())
	}

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/images", handlers.Upload(manager))
		protected.GET("/images", handlers.List(manager))
		protected.GET("/images/:id/preview", handlers.Preview(manager))
		protected.DELETE("/images/:id", handlers.Remove(manager))
		protected.POST("/analyze", handlers.Analyze(orchestrator, manager))
		protected.GET("/overview", handlers.Overview(manager))
		protected.GET("/hospitals", handlers.Hospitals(resolver))
		protected.POST("/view", handlers.Navigate(manager))
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
