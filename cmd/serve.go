package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clearance-server-go/clearance"
	"clearance-server-go/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clearance web server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, store, cleanup, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		service := clearance.NewService(store, log)
		if err := service.Load(ctx); err != nil {
			return fmt.Errorf("failed to load clearance records: %w", err)
		}

		go func() {
			if err := service.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("change watcher stopped", zap.Error(err))
			}
		}()

		gin.SetMode(cfg.Server.Mode)
		router := handlers.NewRouter(handlers.NewHandler(service, log))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("starting server", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
