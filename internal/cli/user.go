package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

// passwordEnv is read when --password is not given.
const passwordEnv = "BUDGET_PASSWORD"

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCommand())
	cmd.AddCommand(newUserPasswdCommand())
	return cmd
}

func newUserCreateCommand() *cobra.Command {
	var (
		password string
		u        core.User
	)

	cmd := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}
			svc, closeFn, err := openAuth()
			if err != nil {
				return err
			}
			defer closeFn()

			u.Username = args[0]
			created, err := svc.Register(cmd.Context(), u, pw)
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("user %q already exists", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", created.Username, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (default $"+passwordEnv+")")
	cmd.Flags().StringVar(&u.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&u.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&u.Email, "email", "", "email address")
	return cmd
}

func newUserPasswdCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd USERNAME",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}
			svc, closeFn, err := openAuth()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.SetPassword(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (default $"+passwordEnv+")")
	return cmd
}

func resolvePassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(passwordEnv); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no password given: use --password or set %s", passwordEnv)
}

func openAuth() (*auth.Service, func(), error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := SetupLogger(cfg).WithComponent(log.ComponentCLI)
	repo, err := InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := repo.Close(); err != nil {
			logger.Warn("Close database failed", log.FieldError, err.Error())
		}
	}
	return auth.NewService(repo, cfg.SessionTTL, logger), closeFn, nil
}
