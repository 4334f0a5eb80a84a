package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"nettrack/internal/auth"
	"nettrack/internal/database"
	"nettrack/internal/handlers"
	"nettrack/internal/services"
	"nettrack/internal/utils"
)

func main() {
	// Load .env file for local development; in production the
	// environment is set by the platform.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := auth.InitOAuth(); err != nil {
		log.Printf("Google sign-in disabled: %v", err)
	}

	notifier := services.NewNotifier(database.GetDB(), services.NewEmailService())
	scheduler := services.NewScheduler(database.GetDB(), notifier)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	router := setupRouter()

	// Stop cron sweeps cleanly on shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down...")
		scheduler.Stop()
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter() *gin.Engine {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(utils.SecurityHeaders())

	router.GET("/", handlers.HomeHandler)
	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api")
	api.Use(utils.NewRateLimiter(120, time.Minute).Middleware())

	// Public routes
	api.POST("/auth/register", handlers.Register)
	api.POST("/auth/login", handlers.Login)
	api.POST("/auth/refresh", handlers.RefreshToken)
	api.POST("/auth/forgot-password", handlers.ForgotPassword)
	api.POST("/auth/reset-password", handlers.ResetPassword)
	if auth.OAuthEnabled() {
		api.GET("/auth/google/login", handlers.GoogleLogin)
		api.GET("/auth/google/callback", handlers.GoogleCallback)
	}
	api.GET("/profiles/:username", handlers.GetProfile)

	// Protected routes
	protected := api.Group("")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/auth/logout", handlers.Logout)
		protected.GET("/auth/me", handlers.GetCurrentUser)

		protected.PUT("/profile", handlers.UpdateProfile)
		protected.POST("/profile/avatar", handlers.UploadAvatar)
		protected.GET("/profile/activity", handlers.GetActivity)
		protected.DELETE("/profile", handlers.DeleteAccount)

		protected.POST("/testnets", handlers.CreateTestnet)
		protected.GET("/testnets", handlers.GetTestnets)
		protected.GET("/testnets/stats", handlers.GetTestnetStats)
		protected.GET("/testnets/upcoming", handlers.GetUpcomingDeadlines)
		protected.GET("/testnets/:id", handlers.GetTestnet)
		protected.PUT("/testnets/:id", handlers.UpdateTestnet)
		protected.DELETE("/testnets/:id", handlers.DeleteTestnet)
		protected.POST("/testnets/:id/complete", handlers.CompleteTestnet)
		protected.POST("/testnets/:id/logo", handlers.UploadTestnetLogo)

		protected.GET("/faucets", handlers.GetFaucets)
		protected.GET("/faucets/:id", handlers.GetFaucet)
		protected.POST("/faucets", handlers.CreateFaucet)
		protected.PUT("/faucets/:id", handlers.UpdateFaucet)
		protected.DELETE("/faucets/:id", handlers.DeleteFaucet)
		protected.POST("/faucets/:id/favorite", handlers.FavoriteFaucet)
		protected.DELETE("/faucets/:id/favorite", handlers.UnfavoriteFaucet)

		protected.GET("/notifications", handlers.GetNotifications)
		protected.PUT("/notifications/read-all", handlers.MarkAllNotificationsRead)
		protected.PUT("/notifications/:id/read", handlers.MarkNotificationRead)
		protected.DELETE("/notifications/:id", handlers.DeleteNotification)
		protected.GET("/notifications/settings", handlers.GetNotificationSettings)
		protected.PUT("/notifications/settings", handlers.UpdateNotificationSettings)
		protected.POST("/notifications/test", handlers.SendTestNotification)
	}

	return router
}
