package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"usdc-bridge.backend/internal/interfaces/http/handlers"
	"usdc-bridge.backend/internal/interfaces/http/middleware"
	"usdc-bridge.backend/pkg/metrics"
)

const (
	serviceName    = "usdc-bridge-backend"
	serviceVersion = "0.1.0"
)

type routeDeps struct {
	authHandler     *handlers.AuthHandler
	sessionHandler  *handlers.SessionHandler
	bridgeHandler   *handlers.BridgeHandler
	transferHandler *handlers.TransferHandler
	authMiddleware  gin.HandlerFunc
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-Idempotency-Hit")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	operator := []gin.HandlerFunc{d.authMiddleware, middleware.RequireOperator()}

	v1 := r.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/token", d.authHandler.IssueToken)
			auth.POST("/refresh", d.authHandler.RefreshToken)
		}

		// Session routes (public read)
		v1.GET("/config", d.sessionHandler.GetConfig)
		v1.GET("/session", d.sessionHandler.GetSession)
		v1.GET("/amount/normalize", d.sessionHandler.NormalizeAmount)

		// Wallet routes (operator)
		wallet := v1.Group("/wallet")
		wallet.Use(operator...)
		{
			wallet.POST("/network", d.sessionHandler.SwitchNetwork)
			wallet.POST("/account", d.sessionHandler.SwitchAccount)
		}
		v1.POST("/balances/refresh", append(operator, d.sessionHandler.RefreshBalances)...)

		// Bridge routes
		bridge := v1.Group("/bridge")
		{
			bridge.GET("/state", d.bridgeHandler.GetState)
			bridge.POST("", append(operator, middleware.IdempotencyMiddleware(), d.bridgeHandler.Submit)...)
			bridge.POST("/dismiss", append(operator, d.bridgeHandler.Dismiss)...)
		}
		v1.GET("/notifications/stream", d.bridgeHandler.StreamSignals)

		// Transfer history (public read)
		transfers := v1.Group("/transfers")
		{
			transfers.GET("", d.transferHandler.ListTransfers)
			transfers.GET("/:id", d.transferHandler.GetTransfer)
		}
	}
}
