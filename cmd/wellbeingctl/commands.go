package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/wellbeing-api/internal/bootstrap"
	"github.com/noah-isme/wellbeing-api/internal/models"
	"github.com/noah-isme/wellbeing-api/internal/service"
	"github.com/noah-isme/wellbeing-api/pkg/database"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long:  `Delete every session whose expiry has passed. Intended for cron.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				removed, err := app.Cleanup.Run(cmd.Context(), "cli")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired session(s)\n", removed)
				return nil
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users, sessions and audit tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadEnv()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			if err := database.EnsureSchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the active session report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				report, err := app.Reports.Generate(cmd.Context(), format)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = report.Filename
				}
				if err := os.WriteFile(path, report.Body, 0o600); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", service.ReportFormatCSV, "Report format (csv or pdf)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to a timestamped name)")

	return cmd
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a maintenance bearer token for the cleanup endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadEnv()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Maintenance.TokenTTL
			}
			signed, expiresAt, err := service.NewMaintenanceTokens(cfg.Maintenance.TokenSecret, ttl).Issue(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "cron", "Token subject recorded in access logs")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to MAINTENANCE_TOKEN_TTL)")

	return cmd
}

func routeCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "route <path>",
		Short: "Show the routing decision for a role and page path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadEnv()
			if err != nil {
				return err
			}
			policy, err := service.LoadRoutePolicy(cfg.Routing.PolicyFile)
			if err != nil {
				return err
			}

			var user *models.UserContext
			if role != "" {
				user = &models.UserContext{User: models.UserInfo{Role: models.UserRole(role)}, IsAuthenticated: true}
			}
			decision := service.NewRouteGuard(policy).Decide(user, args[0])
			if decision.Allow {
				fmt.Fprintln(cmd.OutOrStdout(), "allow")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "redirect %s\n", decision.RedirectTo)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Role to evaluate (STUDENT, COUNSELOR, ADMIN); empty means signed out")

	return cmd
}
