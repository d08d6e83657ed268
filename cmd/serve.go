package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"santa/internal/config"
	"santa/internal/handlers"
	"santa/internal/metrics"
	"santa/internal/services"
	"santa/internal/sms"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web application",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	l, err := initLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer l.Close()

	m := metrics.New()
	metrics.SetGlobal(m)

	santaService := newSantaService(cfg)

	templates, err := handlers.ParseTemplates()
	if err != nil {
		return err
	}
	httpHandler := handlers.NewHTTPHandler(santaService, templates, cfg.SMS.APIKey)

	r := gin.Default()
	r.Use(metrics.GinMiddleware())

	assetsSubFS, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		return err
	}
	r.StaticFS("/assets", http.FS(assetsSubFS))

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	}

	httpHandler.RegisterPublicRoutes(r)

	tenantRoutes := r.Group("/")
	tenantRoutes.Use(httpHandler.TenantMiddleware())
	httpHandler.RegisterTenantRoutes(tenantRoutes)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runJanitor(ctx, santaService, cfg.Server.CleanupInterval, cfg.Server.SessionTTL)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSantaService(cfg *config.Config) *services.SantaService {
	engine := services.NewDrawEngine(nil, cfg.Draw.MaxAttempts, cfg.Draw.ExactFallback)
	client := sms.NewClient(cfg.SMS.APIURL, cfg.SMS.Timeout)
	dispatcher := services.NewDispatcher(client, services.WithRetry(cfg.SMS.MaxRetries, cfg.SMS.RetryBackoff))
	return services.NewSantaService(engine, dispatcher, cfg.SMS.Delay)
}

// runJanitor removes inactive sessions until ctx is done.
func runJanitor(ctx context.Context, s *services.SantaService, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.CleanUpInactiveSessions(ttl)
			logger.Infof("Performed cleanup of inactive sessions (%d removed).", removed)
		}
	}
}
