package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/config"
	httpapi "storefront/internal/http"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/repository"
	"storefront/internal/seed"
	"storefront/internal/service"

	_ "storefront/docs"
)

// @title Storefront Order & Payment API
// @version 1.0.0
// @description Orders reserved against inventory and settled by a simulated payment capture.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	os.Exit(start(os.Args))
}

// start returns the process exit code so deferred flushes run before exit.
func start(args []string) int {
	cfg, err := config.FromArgs(args[0], args[1:])
	if err != nil {
		// logger is not up yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		return 2
	}

	log, err := logger.New(logger.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.AppEnv == "prod" || cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store := repository.NewMemoryStore()
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close store", zap.Error(err))
		}
	}()

	if err := seedCatalog(context.Background(), store, cfg.SeedFile, log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var tx repository.TxManager = repository.NoTx{}
	if cfg.StrictTransactions {
		tx = store.Tx()
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	srv := httpapi.NewServer(httpapi.Services{
		Auth:     service.NewAuthService(store.Users(), tokens, log.Named("auth")),
		Products: service.NewProductService(store.Products(), log.Named("products")),
		Orders:   service.NewOrderService(store.Products(), store.Stock(), store.Orders(), tx, log.Named("orders"), m),
		Payments: service.NewPaymentService(store.Orders(), store.Payments(), tx, log.Named("payments"), m),
	}, log.Named("http"), m, reg)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening",
			zap.String("addr", httpServer.Addr),
			zap.Bool("strict_transactions", cfg.StrictTransactions))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	return nil
}

// seedCatalog loads the YAML catalog when one is configured and the built-in
// products otherwise.
func seedCatalog(ctx context.Context, store repository.Store, file string, log *zap.Logger) error {
	catalog := seed.Defaults()
	if file != "" {
		var err error
		if catalog, err = seed.Load(file); err != nil {
			return err
		}
	}
	n, err := seed.Apply(ctx, store.Products(), catalog)
	if err != nil {
		return err
	}
	log.Info("catalog seeded", zap.String("file", file), zap.Int("products", n))
	return nil
}
