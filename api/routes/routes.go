package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/raffleworks/raffle-backend/internal/config"
	"github.com/raffleworks/raffle-backend/internal/handlers"
	"github.com/raffleworks/raffle-backend/internal/middleware"
	"github.com/raffleworks/raffle-backend/internal/ws"
)

// HandlerDependencies bundles the handlers the router wires up
type HandlerDependencies struct {
	AuthHandler *handlers.AuthHandler
	GameHandler *handlers.GameHandler
	EventHub    *ws.Hub
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedHosts,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes: queries, auth, ticket purchase and (by default)
	// settlement are callable by anyone, as on the original contract.
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})

		public.POST("/auth/login", deps.AuthHandler.Login)

		public.GET("/registry", deps.GameHandler.GetRegistry)
		public.GET("/balance", deps.GameHandler.GetBalance)
		public.GET("/games", deps.GameHandler.ListGames)
		public.GET("/games/:id", deps.GameHandler.GetGame)
		public.GET("/games/:id/tickets/:wallet", deps.GameHandler.GetWalletTickets)
		public.POST("/games/:id/enter", deps.GameHandler.EnterGame)
		public.POST("/games/:id/settle", middleware.OptionalJWTMiddleware(cfg), deps.GameHandler.SettleGame)
		public.POST("/games/prize-received", deps.GameHandler.PrizeReceived)
	}

	// Protected routes: opening games and sweeping funds are owner
	// operations and need an operator token.
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		protected.POST("/games", deps.GameHandler.OpenGame)
		protected.POST("/sweep", deps.GameHandler.SweepFunds)
	}

	if deps.EventHub != nil {
		router.GET("/ws/games/:id", deps.EventHub.Subscribe)
	}

	return router
}
