// Package main is the entry point for the TradingSim server. It loads
// configuration, establishes database connections, runs migrations, wires
// together all plugins, and starts the HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradingsim/tradingsim/internal/app"
	"github.com/tradingsim/tradingsim/internal/config"
	"github.com/tradingsim/tradingsim/internal/database"
	"github.com/tradingsim/tradingsim/internal/mailer"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting TradingSim",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	// --- Connect to MariaDB ---
	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to MariaDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to MariaDB")

	// --- Run Migrations ---
	if err := database.RunMigrations(db, "db/migrations"); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Connect to Redis ---
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("connected to Redis")

	// --- Outbound Mail ---
	// Without an SMTP host, confirmation and reset links land in the log.
	var mail mailer.MailSender
	if cfg.SMTP.Configured() {
		mail = mailer.NewSMTPSender(cfg.SMTP)
		slog.Info("mail delivery via SMTP", slog.String("host", cfg.SMTP.Host))
	} else {
		mail = mailer.NewLogSender()
		slog.Warn("no SMTP host configured; mail will be logged, not sent")
	}

	// --- Create Application ---
	application := app.New(cfg, db, rdb)

	// Register all routes and get back the auth service for seeding.
	authService := application.RegisterRoutes(mail)

	// Seed the demo account so the one-click demo login always works.
	if err := authService.EnsureDemoUser(context.Background()); err != nil {
		slog.Error("failed to seed demo account", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Graceful Shutdown ---
	// Listen for interrupt/term signals to drain connections cleanly.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
		slog.Info("server stopped", slog.Any("reason", err))
	}
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	var handler slog.Handler

	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	slog.SetDefault(slog.New(handler))
}
