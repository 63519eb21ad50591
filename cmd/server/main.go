package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/floradistro/websitev2-sub018/internal/config"
	"github.com/floradistro/websitev2-sub018/internal/database"
	"github.com/floradistro/websitev2-sub018/internal/handler"
	"github.com/floradistro/websitev2-sub018/internal/lock"
	"github.com/floradistro/websitev2-sub018/internal/queue"
	"github.com/floradistro/websitev2-sub018/internal/repository"
	"github.com/floradistro/websitev2-sub018/internal/router"
	queue_publisher "github.com/floradistro/websitev2-sub018/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env always wins
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	// The Redis-backed lock manager serializes registers and
	// product-location pairs across service instances. Without Redis
	// the in-process manager is only safe for a single instance.
	lockOpts := lock.Options{WaitTimeout: cfg.LockWait, Lease: cfg.LockLease}
	rdb := config.NewRedisClient()
	var locks lock.Manager
	if rdb != nil {
		locks = lock.NewRedisManager(rdb, lockOpts)
	} else {
		log.Printf("redis unavailable: using in-process locks (single instance only), rate limiting disabled")
		locks = lock.NewLocalManager(lockOpts)
	}

	sessionRepo := repository.NewSessionRepo(db)
	registerRepo := repository.NewRegisterRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	inventoryRepo := repository.NewInventoryRepo(db)
	counterRepo := repository.NewLocationCounterRepo(db)
	reversalRepo := repository.NewReversalRepo(db)

	events := queue_publisher.New()

	sessions := handler.NewSessionHandler(sessionRepo, registerRepo, locks)
	sales := handler.NewSaleHandler(sessionRepo, orderRepo, paymentRepo, inventoryRepo, counterRepo, locks, events)
	reversals := handler.NewReversalHandler(sessionRepo, orderRepo, paymentRepo, inventoryRepo, counterRepo, reversalRepo, locks, events)
	inventory := handler.NewInventoryHandler(inventoryRepo)
	maintenance := handler.NewMaintenanceHandler(sessionRepo, orderRepo, cfg.AuditConcurrency)

	// Background audit-trail consumer; reconnects on its own.
	go func() {
		if err := queue.StartSalesConsumer(); err != nil {
			log.Printf("sales consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPOS(e, sessions, sales, reversals, inventory, maintenance, cfg.JWTSecret, rdb, config.LoadRateLimitConfig())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
