package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"todo-htmx/core"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "todo.log")
	if err != nil {
		return oops.Code("LOGGING_FAILED").Wrap(err)
	}
	defer logCloser.Close()

	// A server without a usable key must not start.
	key, err := core.ParseSessionKey(cfg.SessionKey)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("setting", "SESSION_KEY").Wrap(err)
	}
	codec := core.NewSessionCodec(key)

	if cfg.MigrateOnStart {
		if err := core.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return oops.Code("MIGRATION_FAILED").Wrap(err)
		}
	}

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := core.NewAuthMetrics(registry)

	hostname, _ := os.Hostname()
	instanceID := core.NewInstanceID()
	state := core.NewPoolState(instanceID, hostname, cfg.HashWorkers)
	pool := core.NewHashPool(core.NewCredentialHasher(cfg.PBKDF2Iterations), cfg.HashWorkers, state, metrics)
	defer pool.Close()

	var status *core.StatusService
	if cfg.RedisURL != "" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
		}
		defer redisClient.Close()
		go state.Start(ctx, redisClient)
		status = core.NewStatusService(redisClient)
	}

	auth := core.NewAuthService(core.NewPgUserRepository(db), pool, codec, metrics)
	router := core.NewRouter(cfg, core.RouterDeps{
		Auth:     auth,
		Todos:    core.NewPgTodoRepository(db),
		Status:   status,
		Gatherer: registry,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s instance=%s hash_workers=%d", srv.Addr, instanceID, cfg.HashWorkers)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
