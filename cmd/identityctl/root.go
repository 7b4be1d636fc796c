package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/edu-identity/internal/config"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
	"github.com/magabrotheeeer/edu-identity/internal/storage/repository"
)

// rootOptions общие флаги.
type rootOptions struct {
	configFile string
}

// NewRootCmd создаёт корневую команду.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "identityctl",
		Short:         "Operator tool for the identity service",
		Long:          `identityctl applies schema migrations, unlocks accounts, changes roles and runs a single cleanup pass.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (defaults to $CONFIG_PATH)")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newUnlockCmd(opts))
	cmd.AddCommand(newGrantRoleCmd(opts))
	cmd.AddCommand(newSweepCmd(opts))

	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	path := o.configFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return nil, errors.New("config path is not set: use --config or CONFIG_PATH")
	}
	return config.Load(path)
}

func (o *rootOptions) logger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return sl.NewLogger(cfg.Env, cmd.ErrOrStderr())
}

// openStorage загружает конфиг и подключается к базе.
func (o *rootOptions) openStorage(ctx context.Context) (*config.Config, *repository.Storage, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	db, err := repository.New(ctx, cfg.StorageConnectionString, repository.WithTimeout(cfg.CollaboratorTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, db, nil
}
