package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/floradistro/websitev2-sub018/internal/config"
	"github.com/floradistro/websitev2-sub018/internal/handler"
	"github.com/floradistro/websitev2-sub018/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPOS registers the POS core routes. All endpoints live
// under /v1 behind JWT authentication and the rate limiter; reversal
// and maintenance endpoints additionally require the MANAGER role
// since undoing revenue and auditing counters are supervisory
// actions.
func RegisterPOS(
	e *echo.Echo,
	sessions *handler.SessionHandler,
	sales *handler.SaleHandler,
	reversals *handler.ReversalHandler,
	inventory *handler.InventoryHandler,
	maintenance *handler.MaintenanceHandler,
	jwtSecret string,
	rdb *redis.Client,
	rlCfg config.RateLimitConfig,
) {
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.NewTokenBucket(rlCfg, rdb))
	v1.Use(middleware.RequireRole("MANAGER", "CASHIER"))

	// Session lifecycle
	v1.POST("/sessions/get-or-create", sessions.GetOrCreate)
	v1.POST("/sessions/:id/close", sessions.Close)
	v1.GET("/sessions/:id", sessions.GetByID)
	v1.GET("/registers/:id/session", sessions.GetByRegister)

	// Sales
	v1.POST("/sales", sales.Create)
	v1.GET("/sales/:id", sales.Get)
	v1.POST("/sales/:id/fulfill-pickup", sales.FulfillPickup)

	// Inventory reads
	v1.GET("/inventory", inventory.Get)

	// Manager-only: reversals and maintenance
	mgr := v1.Group("", middleware.RequireRole("MANAGER"))
	mgr.POST("/sales/:id/void", reversals.Void)
	mgr.POST("/sales/:id/refund", reversals.Refund)
	mgr.POST("/maintenance/audit-sessions", maintenance.AuditSessions)
}
