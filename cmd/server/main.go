package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kcc-issuer/internal/dwn"
	"kcc-issuer/internal/issuance"
	"kcc-issuer/internal/platform/config"
	"kcc-issuer/internal/platform/health"
	"kcc-issuer/internal/platform/httpserver"
	"kcc-issuer/internal/platform/logger"
	"kcc-issuer/internal/platform/metrics"
	httptransport "kcc-issuer/internal/transport/http"
	"kcc-issuer/internal/verification"
	"kcc-issuer/internal/verification/handler"
	"kcc-issuer/pkg/didjwt"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	// Local runs keep their environment in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	log := logger.New(slog.LevelInfo)

	issuer, err := issuerIdentity(cfg)
	if err != nil {
		log.Error("failed to resolve issuer identity", "error", err)
		os.Exit(1)
	}
	log.Info("initializing kcc issuer",
		"addr", cfg.Addr,
		"issuer_did", issuer.DID,
		"environment", cfg.Environment,
	)

	m := metrics.New()
	node := dwn.NewMemoryNode()
	gateway := issuance.New(func(context.Context) (*issuance.Session, error) {
		return &issuance.Session{Issuer: issuer, Node: node}, nil
	}, log,
		issuance.WithAuthorizer(issuance.NewHTTPAuthorizer(cfg.DWNAuthzURL)),
		issuance.WithMetrics(m),
	)

	workflow := verification.NewService(
		issuer,
		verification.NewMemoryStatusStore(),
		gateway,
		cfg.BaseURL,
		cfg.IDVFormURL,
		log,
		verification.WithMetrics(m),
		verification.WithTokenTTL(cfg.TokenTTL),
		verification.WithPreAuthCodeTTL(cfg.PreAuthCodeTTL),
	)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("issuer_session", func() error {
		_, err := gateway.Connect(context.Background())
		return err
	})

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Handler: handler.New(workflow, gateway, issuance.NewQuery(log, nil), log,
			handler.WithIDVCallbackSecret(cfg.IDVCallbackSecret)),
		Health:  healthHandler,
		Metrics: m,
		Logger:  log,
	})

	srv := httpserver.New(cfg.Addr, router)

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

	log.Info("server stopped")
}

// issuerIdentity resolves the issuer DID from the configured seed, or mints a
// fresh one when no seed is set.
func issuerIdentity(cfg config.Config) (*didjwt.Identity, error) {
	if seed := cfg.SeedBytes(); seed != nil {
		return didjwt.IdentityFromSeed(seed)
	}
	return didjwt.NewIdentity()
}
