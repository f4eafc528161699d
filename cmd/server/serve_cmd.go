package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rental-registry/internal/db"
	"rental-registry/internal/httpapi"
	"rental-registry/internal/metrics"
	"rental-registry/internal/service"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func healthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func newServeCmd(load loadFunc) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}

			// -- Connect to DB --
			database, err := db.Connect(cfg, logger)
			if err != nil {
				return err
			}
			sqlDB, err := database.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if migrate {
				if err := db.Migrate(ctx, database); err != nil {
					return err
				}
			}

			registry := service.NewRegistry(database, logger, service.OptionsFromConfig(cfg))
			handler := httpapi.NewHandler(registry, logger)

			// -- Router --
			router := mux.NewRouter()
			router.HandleFunc("/healthcheck", healthcheck).Methods(http.MethodGet)
			if cfg.MetricsEnabled {
				router.Handle(cfg.MetricsPath, metrics.Handler()).Methods(http.MethodGet)
			}
			router.PathPrefix("/").Handler(handler)

			server := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			// -- Startup --
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.WithField("port", cfg.Port).Info("starting server")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply migrations before serving")
	return cmd
}
