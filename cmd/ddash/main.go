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

	"github.com/spf13/cobra"

	"ddash-backend/pkg/config"
	"ddash-backend/pkg/database"
	"ddash-backend/pkg/router"
	"ddash-backend/pkg/session"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "ddash",
	Short: "Project and task management API server",
	Long:  `ddash serves the organizations, projects and tasks REST API backed by PostgreSQL or SQLite.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}

		db := openDatabase(cfg)
		defer db.Close()

		if cfg.AutoMigrate {
			if err := db.RunMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
				os.Exit(1)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		revoker, closeRevoker := openRevoker(ctx, cfg)
		defer closeRevoker()

		server := &http.Server{
			Addr: ":" + cfg.Port,
			Handler: router.New(router.Deps{
				Config:  cfg,
				DB:      db,
				Revoker: revoker,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Printf("🚀 ddash listening on :%s (%s)\n", cfg.Port, cfg.Environment)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			fmt.Println("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			}
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		db := openDatabase(loadConfig())
		defer db.Close()

		if err := db.RunMigrations(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
			os.Exit(1)
		}
		printStatus(db)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Run: func(cmd *cobra.Command, args []string) {
		db := openDatabase(loadConfig())
		defer db.Close()

		if err := db.RollbackMigration(); err != nil {
			fmt.Fprintf(os.Stderr, "Error rolling back migration: %v\n", err)
			os.Exit(1)
		}
		printStatus(db)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current migration version",
	Run: func(cmd *cobra.Command, args []string) {
		db := openDatabase(loadConfig())
		defer db.Close()
		printStatus(db)
	},
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func openDatabase(cfg *config.Config) *database.SQLDatabase {
	db, err := database.NewDatabase(cfg.Database())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return db
}

// openRevoker falls back to the in-process store when Redis is not configured
func openRevoker(ctx context.Context, cfg *config.Config) (session.Revoker, func()) {
	redisCfg, ok := cfg.Redis()
	if !ok {
		return session.NewMemoryRevoker(time.Now), func() {}
	}
	revoker, err := session.NewRedisRevoker(ctx, redisCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to redis: %v\n", err)
		os.Exit(1)
	}
	return revoker, func() { revoker.Close() }
}

func printStatus(db *database.SQLDatabase) {
	status, err := db.GetMigrationStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading migration status: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Database: %s\n", db.Dialect())
	fmt.Printf("Current version: %d\n", status.CurrentVersion)
	fmt.Printf("Latest version:  %d\n", status.LatestVersion)
	if status.Dirty {
		fmt.Println("State: dirty (manual intervention required)")
	} else if status.Pending {
		fmt.Println("State: pending migrations")
	} else {
		fmt.Println("State: up to date")
	}
}
