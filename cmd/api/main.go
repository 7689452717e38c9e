package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/raffleworks/raffle-backend/api/routes"
	"github.com/raffleworks/raffle-backend/internal/config"
	"github.com/raffleworks/raffle-backend/internal/handlers"
	mongorepo "github.com/raffleworks/raffle-backend/internal/repositories/mongodb"
	"github.com/raffleworks/raffle-backend/internal/services"
	"github.com/raffleworks/raffle-backend/internal/ws"
	"github.com/raffleworks/raffle-backend/pkg/chain"
	"github.com/raffleworks/raffle-backend/pkg/custody"
	"github.com/raffleworks/raffle-backend/pkg/mongodb"
)

func main() {
	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	db := mongoClient.Database(cfg.MongoDB.Database)

	// Repositories
	globalRepo := mongorepo.NewGlobalStateRepository(db)
	gameRepo := mongorepo.NewGameRepository(db)
	ticketRepo := mongorepo.NewTicketRepository(db)
	transferRepo := mongorepo.NewTransferRepository(db)
	adminRepo := mongorepo.NewAdminUserRepository(db)

	// External collaborators
	chainClient := chain.NewClient(cfg.Chain.BaseURL, cfg.Chain.MockAPI)
	custodyClient := custody.NewClient(cfg.Custody.BaseURL, cfg.Custody.MockAPI)

	// Services
	gameService := services.NewGameService(globalRepo, gameRepo, ticketRepo, transferRepo, chainClient, custodyClient, services.GameServiceConfig{
		TreasuryAddress: cfg.Raffle.TreasuryAddress,
		Denom:           cfg.Raffle.Denom,
		RestrictSettle:  cfg.Raffle.RestrictSettle,
	})
	authService := services.NewAuthService(adminRepo, cfg)

	eventHub := ws.NewHub()
	gameService.WithEvents(eventHub)

	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelBootstrap()
	if err := gameService.EnsureRegistry(bootstrapCtx, cfg.Raffle.Owner); err != nil {
		log.Fatalf("Failed to initialize raffle registry: %v", err)
	}
	if err := authService.EnsureDefaultAdmin(bootstrapCtx); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	// Auto-settlement sweep
	var scheduler *services.SettlementScheduler
	if cfg.Raffle.AutoSettle {
		scheduler = services.NewSettlementScheduler(gameService, cfg.Raffle.Owner, cfg.Raffle.AutoSettleSpec)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start settlement scheduler: %v", err)
		}
	}

	// Handlers and router
	handlerDeps := routes.HandlerDependencies{
		AuthHandler: handlers.NewAuthHandler(authService),
		GameHandler: handlers.NewGameHandler(gameService),
		EventHub:    eventHub,
	}
	router := routes.SetupRouter(cfg, handlerDeps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
