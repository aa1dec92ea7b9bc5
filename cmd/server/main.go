package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jo-hoe/cattongue/internal/backend/database"
	"github.com/jo-hoe/cattongue/internal/core"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "cattongue",
		Short:        "Cat's Tongue favorites service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the database schema and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate(cmd.Context(), configPath)
			},
		},
	)
	return root
}

// getConfigPath returns the config location and whether it was asked for explicitly.
func getConfigPath(flagPath string) (string, bool) {
	if flagPath != "" {
		return flagPath, true
	}
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath, true
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml"), false
}

func loadConfig(flagPath string) (*core.ServiceConfig, error) {
	configPath, explicit := getConfigPath(flagPath)

	var config *core.ServiceConfig
	if _, err := os.Stat(configPath); !explicit && errors.Is(err, os.ErrNotExist) {
		slog.Info("no config file found, using defaults", "path", configPath)
		config = core.DefaultConfig()
	} else {
		config, err = core.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ResolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve storage paths: %w", err)
	}
	return config, nil
}

func migrate(ctx context.Context, flagPath string) error {
	config, err := loadConfig(flagPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	databaseService, err := database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString, config.Database.MaxConnections)
	if err != nil {
		slog.Error("failed to migrate database", "path", config.Database.ConnectionString, "error", err)
		return err
	}
	slog.Info("database schema is up to date", "path", config.Database.ConnectionString)
	return databaseService.Close()
}
