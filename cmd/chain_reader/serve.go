package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chain_reader/internal/infrastructure/configloader"
	"chain_reader/internal/infrastructure/restapi"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewReaderHandler(a.reader, a.networks, a.enricher(), a.zap)
	router := restapi.SetupRouter(handler, a.zap, a.registry)

	srv := &http.Server{
		Addr:         net.JoinHostPort("", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  configloader.Seconds(a.cfg.Server.ReadTimeoutSeconds),
		WriteTimeout: configloader.Seconds(a.cfg.Server.WriteTimeoutSeconds),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.zap.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.zap.Error("Failed to start server", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	a.zap.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), configloader.Seconds(a.cfg.Server.ShutdownSeconds))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.zap.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	a.zap.Info("Server exiting")
	return nil
}
