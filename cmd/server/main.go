package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/corppay/be-approval-flows/internal/client"
	"github.com/corppay/be-approval-flows/internal/config"
	"github.com/corppay/be-approval-flows/internal/flow"
	"github.com/corppay/be-approval-flows/internal/handler"
	"github.com/corppay/be-approval-flows/internal/repository"
	"github.com/corppay/be-approval-flows/internal/service"
	"github.com/corppay/be-approval-flows/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	level, err := zerolog.ParseLevel(cfg.Service.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", cfg.Service.Name).
		Logger()

	log.Info().
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Approval Flows Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit database is optional: without it, decisions are still served,
	// just not recorded.
	var auditRepo *repository.AuditRepository
	if cfg.Database.URL != "" {
		db, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to audit database")
		}
		defer db.Close()
		auditRepo = repository.NewAuditRepository(db)
		log.Info().Msg("Audit database connection established")
	} else {
		log.Warn().Msg("DATABASE_URL not set; audit persistence disabled")
	}

	// NATS is optional in the same way.
	var notifier *client.NotificationPublisher
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(cfg.Service.Name))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Drain()
		notifier = client.NewNotificationPublisher(nc, log)
		log.Info().Str("nats_url", cfg.NATS.URL).Msg("Notification publisher initialized")
	} else {
		log.Warn().Msg("NATS_URL not set; event publishing disabled")
	}

	// Seed stores with the baseline flow set and approver pool.
	flows := store.NewFlowStore()
	flows.Seed(flow.BaselineFlows())

	pool := store.NewApproverPool(seedApprovers())

	eligibility := client.NewStaticEligibilityClient(false)

	svc := service.NewApprovalFlowService(flows, pool, eligibility, auditRepo, notifier, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	httpHandler.Routes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

// seedApprovers is the initial approver pool; live load and availability are
// written through the approvers API by the workload tracker.
func seedApprovers() []flow.Approver {
	return []flow.Approver{
		{ID: "apr-001", Name: "Grace Nakato", Role: "Manager", Load: 2},
		{ID: "apr-002", Name: "Peter Okello", Role: "Manager", Load: 1},
		{ID: "apr-003", Name: "Irene Auma", Role: "Finance", Load: 3},
		{ID: "apr-004", Name: "David Ssempa", Role: "Finance", Load: 1},
		{ID: "apr-005", Name: "Sarah Kintu", Role: "CFO"},
		{ID: "apr-006", Name: "Ann Birungi", Role: "HR", Load: 2},
		{ID: "apr-007", Name: "Joseph Mugisha", Role: "Administrator"},
	}
}
