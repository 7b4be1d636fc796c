package main

import (
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/edu-identity/internal/migrations"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := opts.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if !showVersion {
				if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
					return err
				}
			}
			version, dirty, err := migrations.Version(db.DB, cfg.MigrationsPath)
			if err != nil {
				return err
			}
			cmd.Printf("schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showVersion, "version", false, "only print the current schema version")

	return cmd
}
