package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repairradar/internal/activation"
	"repairradar/internal/dashboard"
	"repairradar/internal/dashboard/cache"
	"repairradar/internal/events"
	"repairradar/internal/live"
	"repairradar/internal/modules/assets"
	"repairradar/internal/modules/calls"
	"repairradar/internal/modules/maintenance"
	"repairradar/internal/modules/parts"
	"repairradar/internal/modules/vendors"
	"repairradar/internal/modules/workorders"
	"repairradar/internal/platform/config"
	"repairradar/internal/platform/kafka/consumer"
	"repairradar/internal/platform/kafka/producer"
	"repairradar/internal/platform/logger"
	"repairradar/internal/platform/metrics"
	platformredis "repairradar/internal/platform/redis"
	"repairradar/internal/registry"
	"repairradar/internal/seeder"
	tenantservice "repairradar/internal/tenant/service"
	tenantstore "repairradar/internal/tenant/store"
	httptransport "repairradar/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	log.Info("initializing repairradar",
		"addr", cfg.Addr,
		"fetch_timeout", cfg.FetchTimeout,
		"kafka_enabled", cfg.Kafka.Brokers != "",
		"redis_enabled", cfg.Redis.URL != "",
	)

	// Optional snapshot cache.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	snapshotCache := cache.New(redisClient, cfg.Redis.TTL)

	// Module services. Emitters are attached after the event path exists;
	// construction order would otherwise be circular (services -> emitter ->
	// broker -> dashboard -> registry -> services).
	var emitter events.Emitter
	deferredEmitter := events.EmitterFunc(func(ctx context.Context, event events.Event) {
		if emitter != nil {
			emitter.Emit(ctx, event)
		}
	})

	assetSvc := assets.NewService(assets.NewStore(),
		assets.WithLogger(log), assets.WithEmitter(deferredEmitter))
	workOrderSvc := workorders.NewService(workorders.NewStore(),
		workorders.WithLogger(log), workorders.WithEmitter(deferredEmitter))
	callSvc := calls.NewService(calls.NewStore(),
		calls.WithLogger(log), calls.WithEmitter(deferredEmitter))
	maintenanceSvc := maintenance.NewService(maintenance.NewStore(),
		maintenance.WithLogger(log), maintenance.WithEmitter(deferredEmitter))
	partSvc := parts.NewService(parts.NewStore(),
		parts.WithLogger(log), parts.WithEmitter(deferredEmitter),
		parts.WithLowStockThreshold(cfg.LowStockThreshold))
	vendorSvc := vendors.NewService(vendors.NewStore(),
		vendors.WithLogger(log), vendors.WithEmitter(deferredEmitter))

	// The module catalog. Registration order is the canonical dashboard order.
	reg := registry.New()
	reg.MustRegister(assetSvc.Descriptor())
	reg.MustRegister(workOrderSvc.Descriptor())
	reg.MustRegister(callSvc.Descriptor())
	reg.MustRegister(maintenanceSvc.Descriptor())
	reg.MustRegister(partSvc.Descriptor())
	reg.MustRegister(vendorSvc.Descriptor())

	tenants := tenantstore.NewInMemoryTenantStore()
	configs := tenantstore.NewInMemoryConfigStore()
	tenantSvc := tenantservice.New(tenants, configs, tenantservice.WithLogger(log))

	resolver := activation.New(reg, tenantSvc, log)
	engine := dashboard.NewEngine(cfg.FetchTimeout,
		dashboard.WithLogger(log), dashboard.WithMetrics(m))

	dashboardOpts := []dashboard.ServiceOption{
		dashboard.WithServiceLogger(log),
		dashboard.WithServiceMetrics(m),
	}
	if snapshotCache != nil {
		dashboardOpts = append(dashboardOpts, dashboard.WithSnapshotCache(snapshotCache))
	}
	dashboardSvc := dashboard.NewService(reg, resolver, engine, dashboardOpts...)

	broker := live.NewBroker(dashboardSvc, live.WithLogger(log), live.WithMetrics(m))
	defer broker.Close()

	// Module config changes refresh the dashboard like any other mutation.
	tenantSvc.SetNotifier(broker)

	var health []httptransport.HealthChecker

	// Event path: through Kafka when brokers are configured, in-process
	// otherwise.
	if cfg.Kafka.Brokers != "" {
		prod, err := producer.New(producer.Config{
			Brokers: cfg.Kafka.Brokers,
			Acks:    "all",
			Retries: 3,
		}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer prod.Close()
		emitter = events.NewKafkaEmitter(prod, cfg.Kafka.Topic, log)
		health = append(health, prod)

		cons, err := consumer.New(consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topics:  []string{cfg.Kafka.Topic},
		}, events.NewDashboardHandler(broker, log), log)
		if err != nil {
			log.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		cons.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := cons.Stop(ctx); err != nil {
				log.Warn("kafka consumer stop failed", "error", err)
			}
		}()
	} else {
		emitter = events.NewInProcessEmitter(broker)
	}

	if cfg.SeedDemoData {
		sd := seeder.New(tenantSvc, assetSvc, workOrderSvc, callSvc, log)
		if _, err := sd.SeedAll(context.Background()); err != nil {
			log.Error("demo data seeding failed", "error", err)
			os.Exit(1)
		}
	}

	handler := httptransport.NewHandler(httptransport.Services{
		Dashboard:   dashboardSvc,
		Live:        broker,
		Tenants:     tenantSvc,
		Assets:      assetSvc,
		WorkOrders:  workOrderSvc,
		Calls:       callSvc,
		Maintenance: maintenanceSvc,
		Parts:       partSvc,
		Vendors:     vendorSvc,
	}, log, health...)
	router := httptransport.NewRouter(handler, cfg.AdminToken, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}

	log.Info("server stopped")
}
