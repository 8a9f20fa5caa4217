package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	app "github.com/R3E-Network/agent_studio/internal/app"
	"github.com/R3E-Network/agent_studio/internal/app/httpapi"
	"github.com/R3E-Network/agent_studio/internal/app/runtime"
	"github.com/R3E-Network/agent_studio/internal/app/storage/postgres"
	"github.com/R3E-Network/agent_studio/internal/config"
	"github.com/R3E-Network/agent_studio/internal/platform/migrations"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Agent studio API server",
		Long: `Gateway serves the agent studio HTTP API: email sign-up and sessions,
agents, tools, notifications, API tokens, onboarding and the chat stream.

Without a subcommand it starts the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), flags)
		},
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML config file applied over the environment")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), flags)
			},
		},
		migrateCmd(flags),
		seedCmd(flags),
		adminsCmd(flags),
		openAPICmd(),
	)
	return cmd
}

func (f *globalFlags) load() (*config.Config, *logger.Logger, error) {
	if f.configPath != "" {
		if err := os.Setenv("CONFIG_FILE", f.configPath); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	return cfg, logger.New(cfg.Logging), nil
}

func serve(ctx context.Context, flags *globalFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := flags.load()
	if err != nil {
		return err
	}
	application, err := runtime.New(cfg, log)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}

// openDatabase requires a configured DSN; the operational commands have no
// meaning against the in-memory stores.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for this command")
	}
	return runtime.OpenDatabase(cfg.Database)
}

func migrateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withDB := func(fn func(ctx context.Context, db *sql.DB, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(cmd.Context(), db, cmd)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withDB(func(ctx context.Context, db *sql.DB, cmd *cobra.Command) error {
				if err := migrations.Apply(ctx, db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: withDB(func(ctx context.Context, db *sql.DB, cmd *cobra.Command) error {
				if err := migrations.Down(ctx, db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withDB(func(_ context.Context, db *sql.DB, cmd *cobra.Command) error {
				version, dirty, err := migrations.Version(db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}

// openApplication builds a database-backed application without background
// jobs.
func openApplication(cfg *config.Config, log *logger.Logger) (*app.Application, *sql.DB, error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.New(db)
	application, err := app.New(app.Stores{
		Users:         store,
		Sessions:      store,
		Tools:         store,
		Agents:        store,
		Notifications: store,
		APITokens:     store,
		Onboarding:    store,
	}, log, app.Options{SessionSecret: cfg.Auth.JWTSecret, DisableJanitor: true})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return application, db, nil
}

func seedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default tool catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load()
			if err != nil {
				return err
			}
			application, db, err := openApplication(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			added, err := application.Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tools\n", added)
			return nil
		},
	}
}

func adminsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "admins",
		Short: "List the configured admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load()
			if err != nil {
				return err
			}
			application, db, err := openApplication(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			admins, err := resolveAdmins(cmd.Context(), application.Users, cfg.Auth.Admins())
			if err != nil {
				return err
			}
			printAdmins(cmd.OutOrStdout(), admins)
			return nil
		},
	}
}

func openAPICmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Write the OpenAPI description",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := httpapi.OpenAPIDocument()
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			if err := os.WriteFile(output, doc, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (stdout when empty)")
	return cmd
}
