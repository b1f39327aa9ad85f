package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/agenda/internal/config"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/spf13/cobra"
)

const userCommandTimeout = 30 * time.Second

func newUsersCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
		Long: `Manage accounts directly in the database. Changes apply to existing tokens
on their next request, since every authenticated request re-reads the user.`,
	}
	cmd.AddCommand(
		newCreateAdminCommand(global),
		newSetAdminCommand(global),
		newDeleteUserCommand(global),
		newTokenCommand(global),
	)
	return cmd
}

func newCreateAdminCommand(global *globalOptions) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Example: `  server users create-admin --name "Ana" --email ana@example.com --password s3cret!`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), global, func(ctx context.Context, svc *users.Service) error {
				user, err := svc.CreateAdmin(ctx, users.RegisterInput{Name: name, Email: email, Password: password})
				if err != nil {
					if errors.Is(err, users.ErrEmailTaken) {
						return fmt.Errorf("user %s already exists", email)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "password (6 characters to 72 bytes)")
	for _, flag := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}

func newSetAdminCommand(global *globalOptions) *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "set-admin <email>",
		Short: "Grant (or with --revoke, remove) the admin flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), global, func(ctx context.Context, svc *users.Service) error {
				user, err := svc.SetAdmin(ctx, args[0], !revoke)
				if err != nil {
					return userLookupError(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s isAdmin=%t\n", user.Email, user.IsAdmin)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the admin flag instead of granting it")
	return cmd
}

func newDeleteUserCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <email>",
		Short: "Delete an account and the events it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), global, func(ctx context.Context, svc *users.Service) error {
				user, err := svc.DeleteByEmail(ctx, args[0])
				if err != nil {
					return userLookupError(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
}

func newTokenCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <email>",
		Short: "Print a bearer token for an existing account",
		Long: `Print a bearer token for an existing account, for local testing with curl.
The token is checked against the stored account on every request, so it
stops working when the account is deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), global, func(ctx context.Context, svc *users.Service) error {
				result, err := svc.IssueToken(ctx, args[0])
				if err != nil {
					return userLookupError(args[0], err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, result.Token)
				fmt.Fprintf(out, "\nexpires %s\n", result.ExpiresAt.Format(time.RFC3339))
				fmt.Fprintf(out, "curl -H 'Authorization: Bearer %s' http://localhost:5002/myevents\n", result.Token)
				return nil
			})
		},
	}
}

// withUsers opens the persistent store and runs fn against a users service.
func withUsers(ctx context.Context, global *globalOptions, fn func(context.Context, *users.Service) error) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if cfg.Database.Driver != config.StorageDriverPostgres {
		return fmt.Errorf("user management requires STORAGE_DRIVER=%s", config.StorageDriverPostgres)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, userCommandTimeout)
	defer cancel()

	logger := config.NewLogger(cfg.Logging)
	store, closeStore, err := openStore(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(ctx, newServices(cfg, store, logger).users)
}

func userLookupError(email string, err error) error {
	if errors.Is(err, users.ErrNotFound) {
		return fmt.Errorf("no user with email %s", email)
	}
	return err
}
