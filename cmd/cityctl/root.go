package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	gormrepo "oceandepths/internal/adapter/repo/gorm"
	"oceandepths/internal/config"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var errMissingDSN = errors.New("database dsn required: pass --dsn or set OCEAN_DB_DSN")

type globalOptions struct {
	dsn        string
	configPath string
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "cityctl",
		Short: "Maintenance tasks for Ocean Depths cities",
		Long: `cityctl applies schema migrations, founds cities and catches up
overdue actions for a player directly against the postgres store.

Examples:
  cityctl migrate
  cityctl seed-city --player player-1 --name Atlantis
  cityctl sync --player player-1`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", os.Getenv("OCEAN_DB_DSN"), "postgres dsn")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("OCEAN_CONFIG"), "path to a YAML config file")

	cmd.AddCommand(migrateCommand(opts))
	cmd.AddCommand(seedCityCommand(opts))
	cmd.AddCommand(syncCommand(opts))
	return cmd
}

func (o *globalOptions) open() (*gorm.DB, error) {
	dsn := strings.TrimSpace(o.dsn)
	if dsn == "" {
		return nil, errMissingDSN
	}
	return gormrepo.OpenPostgres(dsn)
}

func (o *globalOptions) config() (config.Config, error) {
	return config.Load(o.configPath)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
}
