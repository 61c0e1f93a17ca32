package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"prdbuilder/internal/config"
	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/domain/services"
	"prdbuilder/internal/repository"
	"prdbuilder/internal/repository/postgres"
	prdservice "prdbuilder/internal/service/prd"
)

// NewDBCommand creates the db command group. Every subcommand reads the
// server's environment (STORAGE_BACKEND, DATABASE_URL, TABLE_PREFIX, ...).
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage PRD storage",
	}

	cmd.AddCommand(newDBSchemaCommand(rootOpts))
	cmd.AddCommand(newDBDropCommand(rootOpts))
	cmd.AddCommand(newDBSeedCommand(rootOpts))

	return cmd
}

// dbEnv is an opened storage backend with the logger commands report through
type dbEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	storage *repository.Storage
	closers []io.Closer
}

func (e *dbEnv) Close() {
	e.storage.Close()
	for _, c := range e.closers {
		_ = c.Close()
	}
}

func openDB(ctx context.Context, cmd *cobra.Command) (*dbEnv, error) {
	cfg := config.Load()

	// Logs go to stderr so JSON output stays parseable
	logger, logCloser, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "set up logging", err)
	}

	storage, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		_ = logCloser.Close()
		return nil, WrapExitError(ExitCommandError, "open storage", err)
	}
	return &dbEnv{cfg: cfg, logger: logger, storage: storage, closers: []io.Closer{logCloser}}, nil
}

func requirePostgres(env *dbEnv, command string) error {
	if env.storage.Pool == nil {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("%s requires the %s backend (STORAGE_BACKEND=%s)", command, config.StoragePostgres, env.cfg.StorageBackend))
	}
	return nil
}

func refuseInProd(env *dbEnv, command string) error {
	if env.cfg.Environment == "prod" {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s is disabled when ENVIRONMENT=prod", command))
	}
	return nil
}

func newDBSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the PRD tables if they do not exist (postgres)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			ctx := cmd.Context()

			env, err := openDB(ctx, cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := requirePostgres(env, "db schema"); err != nil {
				return err
			}

			tm := postgres.NewTransactionManager(env.storage.Pool, env.logger)
			if err := postgres.EnsureSchema(ctx, env.storage.Pool, tm, env.storage.Tables); err != nil {
				return WrapExitError(ExitFailure, "ensure schema", err)
			}

			table := env.storage.Tables.PRDs
			return f.Success(map[string]string{"table": table}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Schema ready (%s)\n", table)
			})
		},
	}
}

func newDBDropCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the PRD tables (postgres, never in prod)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			ctx := cmd.Context()

			env, err := openDB(ctx, cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := refuseInProd(env, "db drop"); err != nil {
				return err
			}
			if err := requirePostgres(env, "db drop"); err != nil {
				return err
			}
			if !yes {
				return NewExitError(ExitCommandError, "refusing to drop tables without --yes")
			}

			if err := postgres.DropSchema(ctx, env.storage.Pool, env.storage.Tables); err != nil {
				return WrapExitError(ExitFailure, "drop schema", err)
			}
			env.logger.Warn("prd tables dropped", "table", env.storage.Tables.PRDs)

			table := env.storage.Tables.PRDs
			return f.Success(map[string]string{"dropped": table}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Dropped %s\n", table)
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping the tables")

	return cmd
}

func newDBSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create sample PRDs for a user (never in prod)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			ctx := cmd.Context()

			env, err := openDB(ctx, cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := refuseInProd(env, "db seed"); err != nil {
				return err
			}
			if userID == "" {
				userID = env.cfg.DevUserID
			}

			svc := prdservice.NewPRDService(env.storage.PRDs, env.logger)
			created := make([]*prd.PRD, 0, len(samplePRDs))
			for _, sample := range samplePRDs {
				f.VerboseLog("Seeding %q", sample.Title)
				doc, err := svc.CreatePRD(ctx, &services.CreatePRDRequest{
					UserID:  userID,
					Title:   sample.Title,
					Content: sample.Content,
				})
				if err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("seed %q", sample.Title), err)
				}
				created = append(created, doc)
			}

			return f.Success(created, func(w io.Writer) {
				for _, doc := range created {
					fmt.Fprintf(w, "✓ %s  %s\n", doc.ID, doc.Title)
				}
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner of the seeded PRDs (default DEV_USER_ID)")

	return cmd
}

type samplePRD struct {
	Title   string
	Content prd.DocumentContent
}

var samplePRDs = []samplePRD{
	{
		Title:   "Blank PRD",
		Content: prd.DocumentContent{},
	},
	{
		Title: "Team Search",
		Content: prd.DocumentContent{
			prd.SectionProblemStatement: {
				Content: "Engineers spend a large part of their week hunting for design docs, runbooks and past decisions " +
					"spread across three wikis and a shared drive. Search in each tool is keyword-only and ignores permissions.",
				Status: prd.StatusComplete,
			},
			prd.SectionTargetUsers: {
				Content: "Engineers and product managers at companies with 50 to 500 people.",
				Status:  prd.StatusComplete,
			},
			prd.SectionGoals: {
				Content: "One search box across all internal knowledge sources.",
				Status:  prd.StatusInProgress,
			},
			prd.SectionTimeline: {
				Content: "Beta in Q3, GA in Q4.",
				Status:  prd.StatusInProgress,
			},
		},
	},
}
