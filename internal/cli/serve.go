package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/learnerbot/internal/api"
	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/completion"
	"github.com/ashureev/learnerbot/internal/healthrpc"
	"github.com/ashureev/learnerbot/internal/progress"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	sessionSweepInterval = time.Minute
	healthProbeInterval  = 15 * time.Second
	shutdownTimeout      = 10 * time.Second
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Long: `Serve the chat and progress API over HTTP and WebSocket.

When GRPC_PORT is set, a gRPC health service reporting the database state
is served on that port as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	RootCmd.AddCommand(cmd)
}

func runServe(parent context.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "mode", cfg.Mode)

	kv, err := openStore(parent, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(kv)
	slog.Info("Database connected", "path", cfg.DBPath)

	client := completion.New(cfg.Completion)
	progressStore := progress.NewStore(kv)
	source := func(profileID string) *progress.Engine {
		return progress.NewEngine(progressStore, progress.KeyFor(profileID))
	}
	sessions := chat.NewSessions(func(profileID, _ string) *chat.Controller {
		return newController(cfg.Mode, source(profileID), client, logger)
	})

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	router := api.NewRouter(api.RouterConfig{
		Base:           api.NewHandler(sessions, source, limiter),
		Health:         api.NewHealthHandler(kv, cfg.Mode, client.Configured()),
		AllowedOrigins: cfg.AllowedOrigins(),
		FrontendURL:    cfg.FrontendURL,
		IsDev:          cfg.IsDevelopment(),
	})

	// WebSocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	var health *healthrpc.Server
	var healthLis net.Listener
	if cfg.GRPCPort != "" {
		healthLis, err = net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("listen on gRPC port: %w", err)
		}
		health = healthrpc.New(kv)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	swept := sessions.StartEvictionWorker(gctx, cfg.SessionTTL, sessionSweepInterval)
	slog.Info("Session eviction worker started", "session_ttl", cfg.SessionTTL)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if health != nil {
		g.Go(func() error {
			if err := health.Serve(healthLis); err != nil {
				return fmt.Errorf("grpc health server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			health.Watch(gctx, healthProbeInterval)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			health.Stop()
			return nil
		})
	}

	err = g.Wait()
	<-swept
	if err != nil {
		slog.Error("Server stopped with error", "error", err)
		return err
	}
	slog.Info("Server stopped successfully")
	return nil
}
