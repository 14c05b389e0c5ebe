package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	attendancehandler "shopcore/internal/attendance/handler"
	attendancesvc "shopcore/internal/attendance/service"
	attendancestore "shopcore/internal/attendance/store"
	"shopcore/internal/audit"
	billinghandler "shopcore/internal/billing/handler"
	billingsvc "shopcore/internal/billing/service"
	billingstore "shopcore/internal/billing/store"
	"shopcore/internal/captoken"
	dashcache "shopcore/internal/dashboard/cache"
	dashboardhandler "shopcore/internal/dashboard/handler"
	dashboardsvc "shopcore/internal/dashboard/service"
	displayhandler "shopcore/internal/display/handler"
	displaysvc "shopcore/internal/display/service"
	displaystore "shopcore/internal/display/store"
	"shopcore/internal/gateway"
	identityhandler "shopcore/internal/identity/handler"
	identitysvc "shopcore/internal/identity/service"
	identitystore "shopcore/internal/identity/store"
	"shopcore/internal/platform/config"
	"shopcore/internal/platform/database"
	"shopcore/internal/platform/health"
	"shopcore/internal/platform/logger"
	platformredis "shopcore/internal/platform/redis"
	"shopcore/internal/ratelimit"
	"shopcore/internal/seeder"
	orderhandler "shopcore/internal/serviceorder/handler"
	ordermetrics "shopcore/internal/serviceorder/metrics"
	ordersvc "shopcore/internal/serviceorder/service"
	orderstore "shopcore/internal/serviceorder/store"
	tenanthandler "shopcore/internal/tenant/handler"
	tenantmetrics "shopcore/internal/tenant/metrics"
	tenantsvc "shopcore/internal/tenant/service"
	tenantstore "shopcore/internal/tenant/store"
	transporthttp "shopcore/internal/transport/http"
	"shopcore/pkg/platform/middleware/metadata"
)

// Composite store contracts so memory and Postgres wirings interchange.
type orderStorage interface {
	ordersvc.Store
	dashboardsvc.Orders
	tenantsvc.Purger
}

type billingStorage interface {
	billingsvc.Store
	captoken.SlotStore
	tenantsvc.Purger
}

type displayStorage interface {
	captoken.SlotStore
	displaysvc.TokenDirectory
	tenantsvc.Purger
}

type attendanceStorage interface {
	attendancesvc.Store
	dashboardsvc.Attendance
	tenantsvc.Purger
}

type identityStorage interface {
	identitysvc.Store
	tenantsvc.Purger
}

type auditStorage interface {
	audit.Store
	tenantsvc.Purger
}

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pool, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		tenantStore     tenantsvc.Store
		orderStore      orderStorage
		billingStore    billingStorage
		displayStore    displayStorage
		attendanceStore attendanceStorage
		identityStore   identityStorage
		auditStore      auditStorage
	)
	if pool != nil {
		db := pool.DB()
		tenantStore = tenantstore.NewPostgres(db)
		orderStore = orderstore.NewPostgres(db)
		billingStore = billingstore.NewPostgres(db)
		displayStore = displaystore.NewPostgres(db)
		attendanceStore = attendancestore.NewPostgres(db)
		identityStore = identitystore.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		tenantStore = tenantstore.NewInMemoryStore()
		orderStore = orderstore.NewInMemoryStore()
		billingStore = billingstore.NewInMemoryStore()
		displayStore = displaystore.NewInMemoryStore()
		attendanceStore = attendancestore.NewInMemoryStore()
		identityStore = identitystore.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Info("no DATABASE_URL, using in-memory stores")
	}

	var rateCounter ratelimit.CounterStore
	var dashboardCache dashcache.Cache
	if redisClient != nil {
		rateCounter = ratelimit.NewRedisCounter(redisClient.Client)
		dashboardCache = dashcache.NewRedis(redisClient.Client)
		log.Info("using redis rate-limit counters and dashboard cache")
	} else {
		rateCounter = ratelimit.NewMemoryCounter()
		dashboardCache = dashcache.NewMemory()
	}

	auditor := audit.NewPublisher(auditStore, audit.WithLogger(log))

	identityService := identitysvc.New(identityStore, []byte(cfg.JWTSecret),
		identitysvc.WithLogger(log),
		identitysvc.WithSessionTTL(cfg.SessionTTL))

	orderService := ordersvc.New(orderStore, auditor,
		ordersvc.WithLogger(log),
		ordersvc.WithMetrics(ordermetrics.New()))

	billingService := billingsvc.New(billingStore, orderStore,
		captoken.New(billingStore, captoken.WithLogger(log)), auditor,
		billingsvc.WithLogger(log),
		billingsvc.WithPortalTokenTTL(cfg.PortalTokenTTL))

	displayService := displaysvc.New(
		captoken.New(displayStore, captoken.WithLogger(log)), displayStore, auditor,
		displaysvc.WithLogger(log),
		displaysvc.WithTokenTTL(cfg.DisplayTokenTTL))

	attendanceService := attendancesvc.New(attendanceStore, auditor,
		attendancesvc.WithLogger(log))

	dashboardService := dashboardsvc.New(attendanceStore, orderStore, dashboardCache,
		dashboardsvc.WithLogger(log),
		dashboardsvc.WithCacheTTL(cfg.DashboardCacheTTL))

	tenantService := tenantsvc.New(tenantStore, auditor,
		tenantsvc.WithLogger(log),
		tenantsvc.WithMetrics(tenantmetrics.New()),
		tenantsvc.WithPurgers(orderStore, billingStore, displayStore, attendanceStore, identityStore, auditStore))

	portalLimiter := ratelimit.New(rateCounter, "portal",
		int64(cfg.PortalRateLimit), cfg.RateLimitWindow, ratelimit.WithLogger(log))
	displayLimiter := ratelimit.New(rateCounter, "display",
		int64(cfg.DisplayRateLimit), cfg.RateLimitWindow, ratelimit.WithLogger(log))

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	if cfg.SeedDemo {
		err := seeder.Seed(context.Background(), log, seeder.Services{
			Tenants:    tenantService,
			Identity:   identityService,
			Orders:     orderService,
			Billing:    billingService,
			Attendance: attendanceService,
		})
		if err != nil {
			log.Error("demo seed failed", "error", err)
			os.Exit(1)
		}
	}

	router := transporthttp.New(transporthttp.Config{
		RequestTimeout: cfg.RequestTimeout,
		Metadata:       &metadata.Config{},
	}, log, identityService, transporthttp.Handlers{
		Health:     healthHandler,
		Identity:   identityhandler.New(identityService, log),
		Tenants:    tenanthandler.New(tenantService, log),
		Orders:     orderhandler.New(orderService, log),
		Billing:    billinghandler.New(billingService, log),
		Display:    displayhandler.New(displayService),
		Attendance: attendancehandler.New(attendanceService, log),
		Dashboard:  dashboardhandler.New(dashboardService),
		Gateway:    gateway.New(billingService, displayService, dashboardService, portalLimiter, displayLimiter, log),
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
