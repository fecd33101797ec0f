package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/app"
	"github.com/kailas-cloud/neusearch/internal/config"
	logpkg "github.com/kailas-cloud/neusearch/internal/logger"
	"github.com/kailas-cloud/neusearch/internal/usecase/ingest"
	"github.com/kailas-cloud/neusearch/internal/version"
)

// session is what every subcommand needs once flags are parsed.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	backend *app.Backend
}

type rootFlags struct {
	env   string
	level string
	algo  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "neusearch-ingest",
		Short:         "Load products into the neusearch catalog",
		Long:          "Loads newline-delimited product JSON into the catalog, embeds items that have no vector yet and manages the vector index.",
		Version:       version.String(),
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&flags.env, "env", "", "config environment (defaults to $ENV or local)")
	root.PersistentFlags().StringVar(&flags.level, "log-level", "", "override the configured log level")

	root.AddCommand(newLoadCmd(flags), newEmbedCmd(flags), newIndexCmd(flags))
	return root
}

func newLoadCmd(flags *rootFlags) *cobra.Command {
	var (
		file  string
		batch int
		embed bool
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Upsert products from a JSON lines file (- reads stdin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			in, closeIn, err := openInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeIn()

			svc := rt.service().WithBatchSize(batch)
			report, err := svc.Load(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("load %s: %w", file, err)
			}
			for _, re := range report.Invalid {
				rt.logger.Warn("Invalid record",
					zap.Int("line", re.Line),
					zap.String("external_id", re.ID),
					zap.Error(re.Err),
				)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "read %d, loaded %d, invalid %d\n",
				report.Read, report.Loaded, len(report.Invalid))

			if !embed {
				return nil
			}
			return runEmbed(cmd, rt, batch, 0)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the JSON lines catalog (required)")
	cmd.Flags().IntVar(&batch, "batch", ingest.DefaultBatchSize, "items per upsert and embedding call")
	cmd.Flags().BoolVar(&embed, "embed", false, "embed loaded items afterwards")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newEmbedCmd(flags *rootFlags) *cobra.Command {
	var batch, limit int
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Compute embeddings for items that have none",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()
			return runEmbed(cmd, rt, batch, limit)
		},
	}
	cmd.Flags().IntVar(&batch, "batch", ingest.DefaultBatchSize, "texts per embedding call")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum items to embed (0 means all)")
	return cmd
}

func newIndexCmd(flags *rootFlags) *cobra.Command {
	var recreate bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create the vector index, or rebuild it with --recreate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.backend.EnsureIndex(cmd.Context(), recreate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "index ready (%s, %s, %d dimensions)\n",
				rt.cfg.Database.Driver, rt.cfg.Database.VectorAlgorithm, rt.cfg.Embedding.Dimensions)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.algo, "algo", "", "vector algorithm: hnsw or flat (defaults to config)")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop and rebuild the index")
	return cmd
}

func runEmbed(cmd *cobra.Command, rt *session, batch, limit int) error {
	emb := app.NewEmbedding(rt.cfg, rt.backend.Cache, rt.logger)
	svc := ingest.New(rt.backend.Catalog, emb.Client, rt.logger).WithBatchSize(batch)

	report, err := svc.EmbedMissing(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "listed %d, embedded %d, skipped %d\n",
		report.Listed, report.Embedded, report.Skipped)
	return nil
}

// setup loads config and opens the catalog. ensureIndex creates the vector
// index first so loaded items are searchable right away.
func setup(ctx context.Context, flags *rootFlags, ensureIndex bool) (*session, error) {
	env := flags.env
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return nil, err
	}
	if flags.algo != "" {
		cfg.Database.VectorAlgorithm = flags.algo
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	level := cfg.Logging.Level
	if flags.level != "" {
		level = flags.level
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	if !ensureIndex {
		return &session{cfg: cfg, logger: logger, backend: backend}, nil
	}
	if err := backend.EnsureIndex(ctx, false); err != nil {
		backend.Close()
		_ = logger.Sync()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, backend: backend}, nil
}

func (rt *session) service() *ingest.Service {
	// Loading never embeds, so no provider chain is needed here.
	return ingest.New(rt.backend.Catalog, nil, rt.logger)
}

func (rt *session) close() {
	rt.backend.Close()
	_ = rt.logger.Sync()
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
