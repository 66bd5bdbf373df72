// Package main is the entry point for the planner server. It loads
// configuration, establishes database connections, wires the calendar
// plugins together and starts the HTTP server. A migrate command manages
// the schema without starting the server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/workdeck/planner/internal/app"
	"github.com/workdeck/planner/internal/config"
	"github.com/workdeck/planner/internal/database"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "planner",
		Usage: "Workdeck calendar time grid server.",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := cliApp.Run(os.Args); err != nil {
		slog.Error("planner failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run migrations and start the HTTP server.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "skip-migrations", Usage: "Do not apply pending migrations on startup."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			slog.Info("starting planner",
				slog.String("env", cfg.Env),
				slog.Int("port", cfg.Port),
			)

			// Cancelled on SIGINT/SIGTERM; stops the connection retries,
			// the timeline sweeper and the server.
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// --- Connect to MariaDB ---
			db, err := database.NewMariaDB(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("connecting to MariaDB: %w", err)
			}
			defer db.Close()
			slog.Info("connected to MariaDB")

			if !c.Bool("skip-migrations") {
				if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
			}

			// --- Connect to Redis ---
			rdb, err := database.NewRedis(ctx, cfg.Redis)
			if err != nil {
				return fmt.Errorf("connecting to Redis: %w", err)
			}
			defer rdb.Close()
			slog.Info("connected to Redis")

			// --- Create Application ---
			application := app.New(cfg, db, rdb)
			application.RegisterRoutes(ctx)

			// --- Graceful Shutdown ---
			// Give in-flight requests and pending event saves time to finish.
			done := make(chan struct{})
			go func() {
				defer close(done)
				<-ctx.Done()
				slog.Info("shutting down server...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				if err := application.Shutdown(shutdownCtx); err != nil {
					slog.Error("server forced shutdown", slog.Any("error", err))
				}
			}()

			// --- Start Server ---
			if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			<-done
			slog.Info("server stopped")
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema.",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations.",
				Action: func(c *cli.Context) error {
					return withDB(c, func(cfg *config.Config, db *sql.DB) error {
						return database.RunMigrations(db, cfg.MigrationsPath)
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back applied migrations.",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "Number of migrations to roll back."},
				},
				Action: func(c *cli.Context) error {
					steps := c.Int("steps")
					if steps < 1 {
						return fmt.Errorf("--steps must be at least 1")
					}
					return withDB(c, func(cfg *config.Config, db *sql.DB) error {
						return database.RollbackMigrations(db, cfg.MigrationsPath, steps)
					})
				},
			},
		},
	}
}

// withDB loads config, connects to MariaDB and runs fn against it.
func withDB(c *cli.Context, fn func(*config.Config, *sql.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.NewMariaDB(c.Context, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to MariaDB: %w", err)
	}
	defer db.Close()
	return fn(cfg, db)
}

// loadConfig reads the environment and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg)
	return cfg, nil
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	var handler slog.Handler

	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	}

	slog.SetDefault(slog.New(handler))
}
