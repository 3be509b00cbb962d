package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/livechat/internal/api"
	"github.com/ashureev/livechat/internal/hub"
	"github.com/ashureev/livechat/internal/middleware"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local sandbox chat backend",
		Long: `Serves the endpoints the widget talks to: POST /sendmessage,
GET /config/widget/ and the /ws streaming channel.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	widgets, err := api.LoadWidgetConfigs(cfg.Sandbox.WidgetConfig)
	if err != nil {
		return err
	}

	logger := slog.Default()
	visitors := hub.New(logger)
	handler := api.NewHandler(visitors, widgets, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.Sandbox.AllowedOrigins))
	handler.RegisterRoutes(r)

	// Websocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:        ":" + cfg.Sandbox.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Sandbox listening", "addr", srv.Addr, "widgets", len(widgets))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		visitors.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Sandbox stopped")
	return nil
}
