package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tokenforge/pkg/catalog"
	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/errors"
	"github.com/matzehuels/tokenforge/pkg/generator"
	tfio "github.com/matzehuels/tokenforge/pkg/io"
	"github.com/matzehuels/tokenforge/pkg/metadata"
	"github.com/matzehuels/tokenforge/pkg/observability"
)

// maxListedFailures caps the per-token failures printed after a run.
const maxListedFailures = 20

// generateOpts holds the command-line flags for the generate command.
// Flags that are set override the corresponding configuration fields.
type generateOpts struct {
	config      string
	count       int
	workers     int
	seed        uint64
	maxAttempts int
	ledger      string
	redisURL    string
	runID       string
	noProgress  bool
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate token images and metadata from a layer configuration",
		Long: `Generate token images and metadata from a layer configuration.

Every token id from 1 to count gets one image (<image_dir>/<id>.png) and one
metadata record (<metadata_dir>/<id>.json). Tokens whose retry budget runs out
are reported at the end; the command then exits with status 1.`,
		Example: `  # Generate using ./config.yaml
  tokenforge generate

  # Reproducible run with 8 workers
  tokenforge generate -c collection.toml --seed 42 --workers 8

  # Two processes splitting one collection through a shared Redis ledger
  tokenforge generate -c part1.yaml --ledger redis --redis-url redis://localhost:6379/0 --run-id drop-42
  tokenforge generate -c part2.yaml --ledger redis --redis-url redis://localhost:6379/0 --run-id drop-42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			override := func(cfg *config.Config) {
				flags := cmd.Flags()
				if flags.Changed("count") {
					cfg.Count = opts.count
				}
				if flags.Changed("workers") {
					cfg.Workers = opts.workers
				}
				if flags.Changed("seed") {
					cfg.Seed = opts.seed
				}
				if flags.Changed("max-attempts") {
					cfg.MaxAttempts = opts.maxAttempts
				}
				if flags.Changed("ledger") {
					cfg.Ledger.Backend = opts.ledger
				}
				if flags.Changed("redis-url") {
					cfg.Ledger.RedisURL = opts.redisURL
				}
				if flags.Changed("run-id") {
					cfg.Ledger.RunID = opts.runID
				}
			}
			cfg, err := loadConfig(opts.config, override)
			if err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", defaultConfigPath, "configuration file (.yaml, .yml or .toml)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "number of tokens to generate")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "concurrent workers (default: number of CPUs)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed for reproducible runs (0 = random)")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", config.DefaultMaxAttempts, "sampling attempts per token")
	cmd.Flags().StringVar(&opts.ledger, "ledger", config.LedgerMemory, "uniqueness ledger: memory, redis")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "Redis URL for --ledger redis")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "run id shared by processes using one Redis ledger (default: random)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress spinner")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, cfg *config.Config, opts generateOpts) error {
	logger := loggerFromContext(ctx)

	if err := ensureDirs(cfg.Output.ImageDir, cfg.Output.MetadataDir); err != nil {
		return err
	}

	prog := newProgress(logger)
	cat, err := catalog.Load(cfg.Layers)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Scanned %d layer categories", cat.Len()))

	runner := generator.NewRunner(cat, cfg.ForbiddenPairs(), logger)
	if cfg.Ledger.RunID != "" {
		runner.RunID = cfg.Ledger.RunID
	}
	for _, w := range runner.Warnings {
		printWarning("%s", errors.UserMessage(w))
	}

	l, err := newLedger(ctx, cfg.Ledger, runner.RunID)
	if err != nil {
		return err
	}
	defer l.Close()
	runner.Ledger = l

	writer, err := newMetadataWriter(ctx, cfg)
	if err != nil {
		return err
	}
	defer writer.Close(context.WithoutCancel(ctx))

	level, compress := cfg.CompressionLevel()
	runner.Builder = metadata.NewBuilder(cfg.Metadata)
	runner.Sink = generator.NewFileSink(cfg.Output.ImageDir, tfio.PNGOptions{Compress: compress, Level: level}, writer)

	var spinner *Spinner
	if !opts.noProgress {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Generating %d tokens", cfg.Count))
		observability.SetGenerationHooks(newProgressHooks(spinner, cfg.Count))
		defer observability.Reset()
		spinner.Start()
	}

	result, err := runner.Run(ctx, generator.Options{
		Count:       cfg.Count,
		Workers:     cfg.Workers,
		MaxAttempts: cfg.MaxAttempts,
		Seed:        cfg.Seed,
	})
	if spinner != nil {
		spinner.Stop()
	}
	if result == nil {
		return err
	}

	printRunSummary(result, cfg)
	if err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("%d of %d tokens failed", result.Stats.Failed, result.Stats.Requested)
	}
	return nil
}

// printRunSummary prints the statistics and any failed tokens of a run.
func printRunSummary(result *generator.Result, cfg *config.Config) {
	s := result.Stats
	printNewline()
	if result.OK() {
		printSuccess("Generated %s tokens", StyleNumber.Render(fmt.Sprint(s.Emitted)))
	} else {
		printError("Generated %d of %d tokens", s.Emitted, s.Requested)
	}
	printKeyValue("Run", result.RunID)
	printCount("Attempts", s.Attempts)
	printKeyValue("Rejected", fmt.Sprintf("%d forbidden, %d duplicate", s.Rejected, s.Collisions))
	printKeyValue("Duration", s.Duration.Round(time.Millisecond).String())
	printFile(cfg.Output.ImageDir)
	printFile(cfg.Output.MetadataDir)

	for i, f := range result.Failures {
		if i == maxListedFailures {
			printDetail("... and %d more", len(result.Failures)-maxListedFailures)
			break
		}
		printDetail("token %d: %s", f.ID, f.Err)
	}
	if s.Emitted > 0 {
		printNextStep("Audit the collection", appName+" check -c <config>")
	}
}
