package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"ict-ledger/controllers"
	"ict-ledger/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled ledger jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, runServe)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(a *app) error {
	ctx := rootCmd.Context()

	if strings.EqualFold(a.cfg.App.Env, "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	var scheduler *services.Scheduler
	if a.cfg.Cron.Enabled {
		var err error
		scheduler, err = services.NewScheduler(ctx, services.SchedulerConfig{
			DailyReset:    a.cfg.Cron.DailyReset,
			Recompute:     a.cfg.Cron.Recompute,
			MarkPositions: a.cfg.Cron.MarkPositions,
			Location:      a.location,
		}, a.accounts, a.performance, a.ledger, a.logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.HTTPAddr,
		Handler:           controllers.NewRouter(a.deps()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case err, ok := <-errCh:
		if ok {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
