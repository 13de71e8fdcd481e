package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/internal/config"
	"github.com/contractpro/contractpro/internal/db"
	"github.com/contractpro/contractpro/internal/logger"
)

const shutdownTimeout = 10 * time.Second

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "contractpro",
	Short: "ContractPro API server for freelancers' clients, contracts and invoices",
	Long: `ContractPro serves the JSON API behind the ContractPro web app.

Configuration is read from the environment, after loading a .env file
from the working directory when one exists. DB_DRIVER selects postgres
(default) or sqlite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load environment variables from .env file
		_ = godotenv.Load()
		cfg = config.Load()
		return logger.Setup(cfg.Log)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("migrate")
		conn, err := db.Connect(cfg.Database, log)
		if err != nil {
			return err
		}
		if err := db.Migrate(conn, cfg, log); err != nil {
			return err
		}
		log.Info().Msg("migrations completed")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo data set and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("seed")
		conn, err := db.Connect(cfg.Database, log)
		if err != nil {
			return err
		}
		if err := db.Migrate(conn, cfg, log); err != nil {
			return err
		}
		_, err = db.Seed(cmd.Context(), conn, clock.WallClock, log)
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("server")

	conn, err := db.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := prepare(cmd.Context(), conn, log); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(cfg, conn, clock.WallClock, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
		log.Info().Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}

// prepare migrates on startup when enabled, or always on sqlite where the
// file may be new, and seeds demo data when DB_SEED is set.
func prepare(ctx context.Context, conn *gorm.DB, log zerolog.Logger) error {
	if cfg.App.Migrations || cfg.Database.Driver == "sqlite" {
		if err := db.Migrate(conn, cfg, log); err != nil {
			return err
		}
	}
	if cfg.App.Seed {
		if _, err := db.Seed(ctx, conn, clock.WallClock, log); err != nil {
			return err
		}
	}
	return nil
}
