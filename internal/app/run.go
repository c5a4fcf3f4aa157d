package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"object-denormalizer/internal/common/logging"
	"object-denormalizer/internal/config"
	"object-denormalizer/internal/server"
)

const shutdownTimeout = 30 * time.Second

// Run is the main entry point for the application
func Run() error {
	_ = godotenv.Load()

	logging.InitGlobalLogger()
	defer logging.MustSync()

	logging.Info("Starting object denormalizer")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logging.Error("Object denormalizer stopped with error", err)
		return err
	}

	logging.Info("Object denormalizer exited")
	return nil
}

// Start listens on the configured HTTP port and runs until ctx is cancelled
func (app *App) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+app.Config.HTTPPort)
	if err != nil {
		return err
	}
	return app.Serve(ctx, ln)
}

// Serve subscribes to the input topic and serves the HTTP routes on ln.
// Cancelling ctx stops the subscription and shuts the server down.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := app.Broker.Subscribe(ctx, app.Config.InputTopic, app.Handler()); err != nil {
		ln.Close()
		return err
	}
	app.Logger.Info("Subscribed to input topic", logging.Field{Key: "topic", Value: app.Config.InputTopic})

	router := mux.NewRouter()
	app.SetupRoutes(router)
	srv := server.New(router, app.Config.HTTPPort)

	g.Go(func() error {
		app.Logger.Info("HTTP server listening", logging.Field{Key: "addr", Value: ln.Addr().String()})
		return srv.Serve(ln)
	})

	g.Go(func() error {
		<-ctx.Done()
		app.Logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
