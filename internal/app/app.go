package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/myphotos/backend/internal/config"
	"github.com/myphotos/backend/internal/db"
	"github.com/myphotos/backend/internal/logging"
)

// Run bootstraps the MyPhotos backend application.
func Run(ctx context.Context, args []string) error {
	root := newRootCommand(os.Stdout)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "myphotos",
		Short:         "Photo sharing between confirmed friends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:       "migrate [up|status]",
			Short:     "Apply or list database migrations",
			Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"up", "status"},
			RunE: func(cmd *cobra.Command, args []string) error {
				command := "up"
				if len(args) > 0 {
					command = args[0]
				}
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				return runMigrations(cmd.Context(), cmd.OutOrStdout(), cfg, command)
			},
		},
		&cobra.Command{
			Use:   "seed <name>",
			Short: "Apply a seed file such as dev",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				return runSeed(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
			},
		},
	)

	return root
}

func runMigrations(ctx context.Context, out io.Writer, cfg config.Config, command string) error {
	logger := logging.New(os.Stderr, cfg.LogLevel)

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := db.NewMigrator(os.DirFS(cfg.MigrationDir), logger)

	switch command {
	case "status":
		statuses, err := migrator.Status(ctx, pool)
		if err != nil {
			return err
		}
		for _, status := range statuses {
			mark := " "
			if status.Applied {
				mark = "x"
			}
			fmt.Fprintf(out, "[%s] %s\n", mark, status.Name)
		}
		return nil
	case "up":
		applied, err := migrator.Up(ctx, pool)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "no migrations to apply")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(out, "applied migration %s\n", name)
		}
		return nil
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

func runSeed(ctx context.Context, out io.Writer, cfg config.Config, name string) error {
	seedName := seedFileName(name)

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.ApplyFile(ctx, pool, os.DirFS(cfg.SeedDir), seedName); err != nil {
		return err
	}

	fmt.Fprintf(out, "applied seed %s\n", seedName)
	return nil
}

func seedFileName(name string) string {
	if strings.HasSuffix(name, ".sql") {
		return name
	}
	return name + "_seed.sql"
}
