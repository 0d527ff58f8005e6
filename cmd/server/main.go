package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/config"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "homeinv",
	Short: "Home inventory API server",
	Long: `homeinv serves the home inventory API.

Configuration is read from the environment, an optional .env file and an
optional config.yaml in the working directory. JWT_SECRET is required.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// openStore opens the database, creates missing tables and probes the
// connection. A failed probe is logged, not fatal.
func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*sql.DB, *sqlite.Executor, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	store := sqlite.NewExecutor(db)
	if err := store.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init database: %w", err)
	}

	if _, err := store.ExecuteQuery(ctx, "", repository.OpTest, nil); err != nil {
		logger.WithError(err).Error("database connection unavailable")
	} else {
		logger.Infof("database connection test successful (%s)", cfg.Database.Path)
	}
	return db, store, nil
}
