package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anoto/cache"
	"anoto/config"
	"anoto/content"
	"anoto/db"
	"anoto/handlers"
	"anoto/logging"
	appmw "anoto/middleware"
	"anoto/seal"
	"anoto/upstream"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "anoto",
		Short:        "Anoto anxiety screening and journaling service",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), pendingCmd(), scoreCmd(), versionCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			logger, err := logging.New(cfg.LogLevel, cfg.Development())
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

// app is the assembled service and what must be released when it stops.
type app struct {
	handler http.Handler
	store   *db.Store
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// newApp wires configuration into the router. Storage is opened and
// migrated only when a DSN is configured.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	secret := cfg.SessionSecret
	if secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		secret = hex.EncodeToString(b)
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	a := &app{}
	deps := handlers.Deps{
		Upstream: upstream.NewClient(cfg.PredictURL, cfg.BackendURL, cfg.PredictTimeout, cfg.UpstreamTimeout),
		Cache:    cache.New(cfg.CacheTTL),
		Content:  content.Default(),
		Sessions: appmw.NewSessions(secret, logger),
		Logger:   logger,
	}

	if cfg.StorageEnabled() {
		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.store = store
		deps.Store = store
	} else {
		logger.Info("DSN not set, history is disabled")
	}

	h, err := handlers.NewHandler(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.handler = h.Router(handlers.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
	})
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Store, error) {
	conn, d, err := db.Connect(ctx, cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, d); err != nil {
		conn.Close()
		return nil, err
	}
	if cfg.JournalKey == "" {
		logger.Warn("JOURNAL_KEY not set, journals saved before a restart will be hidden")
	}
	sealer, err := seal.New(cfg.JournalKey)
	if err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("connected to database", zap.String("driver", d.Name))
	return db.NewStore(conn, d, sealer, db.WithLogger(logger)), nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.UpstreamTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server running",
			zap.String("addr", cfg.Addr),
			zap.String("predict_api", cfg.PredictURL),
			zap.String("backend_api", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
