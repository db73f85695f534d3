package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oddsly-wagering-ledger/internal/api_gateway/handler"
	"github.com/oddsly-wagering-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, deps Dependencies) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	accountHandler := handler.NewAccountHandler(logger, deps.Ledger)
	walletHandler := handler.NewWalletHandler(logger, deps.Ledger)
	stakeHandler := handler.NewStakeHandler(logger, deps.Ledger)
	eventHandler := handler.NewEventHandler(logger, deps.Catalog, deps.Settlement)

	v1 := r.Group("/api/v1")
	{
		// Caller-scoped operations, identity comes from the auth layer
		caller := v1.Group("", middleware.AccountIdentity())
		{
			caller.POST("/accounts", accountHandler.Open)
			caller.GET("/accounts/me", accountHandler.Me)
			caller.GET("/accounts/me/stakes", accountHandler.Stakes)
			caller.GET("/accounts/me/ledger", accountHandler.Ledger)
			caller.GET("/accounts/me/history", accountHandler.History)

			caller.POST("/stakes", stakeHandler.Place)

			caller.POST("/deposits", walletHandler.Deposit)
			caller.POST("/withdrawals", walletHandler.Withdraw)
		}

		// Administrative operations, reached only through the internal network
		v1.POST("/stakes/:id/void", stakeHandler.Void)

		events := v1.Group("/events")
		{
			events.POST("", eventHandler.Create)
			events.GET("", eventHandler.List)
			events.GET("/:id", eventHandler.GetByID)
			events.PUT("/:id/odds", eventHandler.UpdateOdds)
			events.POST("/:id/live", eventHandler.MarkLive)
			events.POST("/:id/settle", eventHandler.Settle)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := deps.Health(ctx); err != nil {
				logger.Warn("Health check failed", "error", err)
				handler.RespondUnavailable(c, "A storage dependency is unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
}
