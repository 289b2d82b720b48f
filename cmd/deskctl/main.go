package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/TalentDesk/internal/audit"
	"github.com/dharsanguruparan/TalentDesk/internal/backend"
	"github.com/dharsanguruparan/TalentDesk/internal/binding"
	"github.com/dharsanguruparan/TalentDesk/internal/config"
	"github.com/dharsanguruparan/TalentDesk/internal/database"
	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
	"github.com/dharsanguruparan/TalentDesk/internal/signing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "deskctl: %v\n", err)
		os.Exit(1)
	}
}

var cfg *config.Config

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deskctl",
		Short: "TalentDesk administration CLI",
		Long: `deskctl manages the TalentDesk database schema and inspects form configuration
without going through the admin dashboard. It reads the same environment as the API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			return nil
		},
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newTemplatesCmd(),
		newResolveCmd(),
		newAuditCmd(),
		newTokenCmd(),
	)
	return cmd
}

func openBackend(ctx context.Context) (*backend.Backend, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return backend.Open(ctx, cfg, backend.Options{Logger: logger})
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()
			if err := database.MigrateUp(be.Pool); err != nil {
				return err
			}
			return printVersion(cmd.OutOrStdout(), be)
		},
	}
	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			be, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()
			if err := database.MigrateDown(be.Pool, steps); err != nil {
				return err
			}
			return printVersion(cmd.OutOrStdout(), be)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()
			return printVersion(cmd.OutOrStdout(), be)
		},
	}
	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(w io.Writer, be *backend.Backend) error {
	v, dirty, err := database.SchemaVersion(be.Pool)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(w, "schema version %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(w, "schema version %d\n", v)
	return nil
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect config templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List config templates, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()
			list, err := be.Templates.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			return writeTemplates(cmd.OutOrStdout(), list)
		},
	})
	return cmd
}

func writeTemplates(w io.Writer, list []model.ConfigTemplate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tREQUIRED\tSHOWN\tUPDATED")
	for _, t := range list {
		var required, shown int
		for _, f := range formconfig.Fields {
			switch t.Config.ModeFor(f.Key, formconfig.ResolutionDefaultMode) {
			case formconfig.ModeRequired:
				required++
			case formconfig.ModeShown:
				shown++
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", t.ID, t.Name, required, shown, t.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <jobId>",
		Short: "Print the effective form config of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			be, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer be.Close()
			job, err := be.Jobs.GetJob(ctx, args[0])
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			res, err := binding.NewResolver(be.Templates, be.Defaults, logger).Resolve(ctx, job)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "List jobs whose config template was deleted",
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			report, err := audit.NewScanner(be.Jobs, logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token signed with ADMIN_SIGNING_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("ADMIN_SIGNING_SECRET") == "" {
				return errors.New("ADMIN_SIGNING_SECRET is not set; a random secret would produce an unusable token")
			}
			token, expires := signing.NewSigner(cfg.AdminSigningSecret).Issue("admin", ttl)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
