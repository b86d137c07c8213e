package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"secureauth/internal/database"
	"secureauth/internal/repositories"
)

var (
	colorSuccess = color.New(color.FgGreen, color.Bold)
	colorError   = color.New(color.FgRed, color.Bold)
	colorWarning = color.New(color.FgYellow, color.Bold)
	colorInfo    = color.New(color.FgCyan)
	colorHeader  = color.New(color.FgHiBlue, color.Bold)
)

type opener func() (*sql.DB, error)

type schemaOptions struct {
	Attempts int
	Delay    time.Duration
}

func newRootCmd(open opener, opts schemaOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "secureauth-db",
		Short: "SecureAuth database maintenance",
		Long: `Maintenance commands for the SecureAuth accounts table.

Connection settings come from config/config.yaml, .env and DATABASE_URL,
the same way the server reads them.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		newSetupCmd(open, opts),
		newCheckCmd(open),
		newResetCmd(open, opts),
	)
	return rootCmd
}

func withDB(open opener, fn func(ctx context.Context, db *sql.DB) error) error {
	db, err := open()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), db)
}

func newSetupCmd(open opener, opts schemaOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the accounts table if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return withDB(open, func(ctx context.Context, db *sql.DB) error {
				colorInfo.Fprintln(out, "Connecting to database...")
				if err := repositories.EnsureSchema(ctx, db, opts.Attempts, opts.Delay); err != nil {
					colorError.Fprintln(out, "✗ Database setup failed")
					return err
				}
				colorSuccess.Fprintln(out, "✓ Accounts table created or already exists")
				return nil
			})
		},
	}
}

func newCheckCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test the connection and print the accounts table structure",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return withDB(open, func(ctx context.Context, db *sql.DB) error {
				colorInfo.Fprintln(out, "Testing database connection...")
				if err := database.Ping(ctx, db, 10*time.Second); err != nil {
					colorError.Fprintln(out, "✗ Connection failed")
					return err
				}
				colorSuccess.Fprintln(out, "✓ Successfully connected to the database")

				exists, cols, err := repositories.DescribeSchema(ctx, db)
				if err != nil {
					return err
				}
				if !exists {
					colorWarning.Fprintln(out, "! Accounts table does not exist, run `secureauth-db setup`")
					return nil
				}
				colorHeader.Fprintln(out, "Table structure:")
				for _, c := range cols {
					size := "-"
					if c.MaxLength != nil {
						size = fmt.Sprint(*c.MaxLength)
					}
					fmt.Fprintf(out, "  %-12s %-28s %s\n", c.Name, c.DataType, size)
				}
				return nil
			})
		},
	}
}

func newResetCmd(open opener, opts schemaOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the accounts table (all accounts are lost)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				colorWarning.Fprintln(out, "! This deletes every account. Re-run with --yes to confirm.")
				return fmt.Errorf("reset not confirmed")
			}
			return withDB(open, func(ctx context.Context, db *sql.DB) error {
				if err := repositories.DropSchema(ctx, db); err != nil {
					return err
				}
				colorWarning.Fprintln(out, "Dropped existing accounts table")
				if err := repositories.EnsureSchema(ctx, db, opts.Attempts, opts.Delay); err != nil {
					return err
				}
				colorSuccess.Fprintln(out, "✓ Created new accounts table")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm destructive reset")
	return cmd
}
