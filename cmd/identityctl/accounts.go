package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/password"
	"github.com/magabrotheeeer/edu-identity/internal/models"
	"github.com/magabrotheeeer/edu-identity/internal/services/credentials"
)

// accountAdmin операции над аккаунтами, доступные оператору.
type accountAdmin interface {
	Unlock(ctx context.Context, handle string, now time.Time) error
	SetRole(ctx context.Context, handle string, role models.Role, now time.Time) error
}

func newUnlockCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <handle>",
		Short: "Reset failed attempts and clear the lock flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccounts(cmd, opts, func(admin accountAdmin) error {
				return runUnlock(cmd, admin, args[0], time.Now().UTC())
			})
		},
	}
}

func newGrantRoleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-role <handle> <STUDENT|ADMIN>",
		Short: "Change the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := models.Role(strings.ToUpper(args[1]))
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", args[1])
			}
			return withAccounts(cmd, opts, func(admin accountAdmin) error {
				return runGrantRole(cmd, admin, args[0], role, time.Now().UTC())
			})
		},
	}
}

func withAccounts(cmd *cobra.Command, opts *rootOptions, fn func(accountAdmin) error) error {
	cfg, db, err := opts.openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	store := credentials.NewStore(db, password.NewHasher(cfg.Auth.BcryptCost), cfg.Auth.LockThreshold, metrics.NewNop(), opts.logger(cmd, cfg))
	return fn(store)
}

func runUnlock(cmd *cobra.Command, admin accountAdmin, handle string, now time.Time) error {
	if err := admin.Unlock(cmd.Context(), handle, now); err != nil {
		return fmt.Errorf("unlock %s: %w", handle, err)
	}
	cmd.Printf("account %s unlocked\n", handle)
	return nil
}

func runGrantRole(cmd *cobra.Command, admin accountAdmin, handle string, role models.Role, now time.Time) error {
	if err := admin.SetRole(cmd.Context(), handle, role, now); err != nil {
		return fmt.Errorf("set role of %s: %w", handle, err)
	}
	cmd.Printf("account %s now has role %s\n", handle, role)
	return nil
}
