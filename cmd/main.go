package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"solrem-markets/internal/auth"
	"solrem-markets/internal/config"
	"solrem-markets/internal/database"
	"solrem-markets/internal/escrow"
	"solrem-markets/internal/events"
	"solrem-markets/internal/handlers"
	"solrem-markets/internal/jobs"
	"solrem-markets/internal/repository"
	"solrem-markets/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize repository and escrow ledger
	repo := repository.NewRepository(db)
	ledger := escrow.NewLedger(db)
	sink := events.NewStoreSink(db)

	// Initialize services
	authService := services.NewAuthService(repo)
	marketService := services.NewMarketService(repo, ledger, sink)
	statsService := services.NewStatsService(marketService, cfg.Token.Decimals)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	marketHandler := handlers.NewMarketHandler(marketService, statsService)
	betHandler := handlers.NewBetHandler(marketService)
	ledgerHandler := handlers.NewLedgerHandler(ledger, statsService)

	// Start resolution monitor job
	resolutionMonitor := jobs.NewResolutionMonitor(repo, cfg.Jobs.ResolutionCheckInterval)
	go resolutionMonitor.Start()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.App.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.App.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public market routes
	router.GET("/api/markets", marketHandler.GetMarkets)
	router.GET("/api/markets/:id", marketHandler.GetMarketByID)
	router.GET("/api/markets/:id/stats", marketHandler.GetMarketStats)
	router.GET("/api/markets/:id/bets", betHandler.GetMarketBets)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Market endpoints
		api.POST("/markets", marketHandler.CreateMarket)
		api.POST("/markets/:id/resolve", marketHandler.ResolveMarket)
		api.POST("/markets/:id/cancel", marketHandler.CancelMarket)

		// Bet endpoints
		api.POST("/markets/:id/bets", betHandler.PlaceBet)
		api.GET("/markets/:id/bets/me", betHandler.GetMyBet)
		api.POST("/markets/:id/claim", betHandler.ClaimWinnings)

		// Wallet/ledger endpoints
		api.GET("/wallet/balance", ledgerHandler.GetBalance)
		api.GET("/wallet/transfers", ledgerHandler.GetTransfers)
		api.POST("/wallet/deposit", ledgerHandler.Deposit)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	resolutionMonitor.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
