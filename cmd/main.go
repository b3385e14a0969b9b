package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"sitegen-backend/internal/api"
	"sitegen-backend/internal/api/routes"
	v1 "sitegen-backend/internal/api/routes/v1"
	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/config"
	"sitegen-backend/internal/repo"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sitegen",
		Short:         "AI website generator backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newCleanupCmd(), newTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if err := settings.RequireServe(); err != nil {
				return err
			}

			if err := config.ConnectDB(settings.DBURL, settings.DBLogLevel); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer config.CloseDB()

			if err := config.MigrateAllModels(settings.AutoMigrate); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			svc, err := v1.NewServices(cmd.Context(), settings, config.DB)
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					log.Printf("failed to close services: %v", err)
				}
			}()

			app := api.NewServer(settings.CORSOrigins)
			routes.Register(app, svc)

			return api.StartServer(app, settings.Port)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if err := config.ConnectDB(settings.DBURL, settings.DBLogLevel); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer config.CloseDB()

			return config.MigrateAllModels(true)
		},
	}
}

func newCleanupCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete generations with an empty AI response",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if err := config.ConnectDB(settings.DBURL, settings.DBLogLevel); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer config.CloseDB()

			generations := repo.NewGenerationRepository(config.DB)
			ctx := cmd.Context()

			empty, total, err := generations.CountEmpty(ctx)
			if err != nil {
				return err
			}
			log.Printf("📊 %d of %d generations have an empty response", empty, total)
			if dryRun || empty == 0 {
				return nil
			}

			deleted, err := generations.DeleteEmpty(ctx)
			if err != nil {
				return err
			}
			log.Printf("🧹 Deleted %d empty generations", deleted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report the number of empty generations")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var identity auth.Identity
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if settings.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET environment variable is required")
			}
			token, err := auth.GenerateToken(identity, settings.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&identity.UserID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&identity.Email, "email", "", "user email")
	cmd.Flags().StringVar(&identity.Name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

