package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tokenforge/pkg/buildinfo"
	"github.com/matzehuels/tokenforge/pkg/catalog"
	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/errors"
	"github.com/matzehuels/tokenforge/pkg/ledger"
	"github.com/matzehuels/tokenforge/pkg/metadata"
	"github.com/matzehuels/tokenforge/pkg/sampler"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "tokenforge"

	// defaultConfigPath is read when --config is not given.
	defaultConfigPath = "config.yaml"

	// defaultMetadataDir is audited when no configuration is available.
	defaultMetadataDir = "output/metadata"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "tokenforge generates unique layered token images and metadata",
		Long: `tokenforge combines image layers from per-category directories into a collection of
unique tokens. Layers are picked by rarity weight, forbidden trait pairs are never
combined, and no two tokens share the same layer combination.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Helpers
// =============================================================================

// loadConfig reads, defaults and validates the configuration at path.
// apply runs between loading and defaulting so flags can override fields.
func loadConfig(path string, apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ensureDirs creates the output directories.
func ensureDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create %s", d)
		}
	}
	return nil
}

// newLedger opens the configured ledger backend for runID.
func newLedger(ctx context.Context, cfg config.LedgerConfig, runID string) (ledger.Ledger, error) {
	if cfg.Backend != config.LedgerRedis {
		return ledger.NewMemory(), nil
	}
	return ledger.DialRedis(ctx, cfg.RedisURL, cfg.KeyPrefix, runID)
}

// newMetadataWriter returns the file writer, preceded by a Mongo publisher
// when publishing is configured. A record is written to disk only after it
// was published.
func newMetadataWriter(ctx context.Context, cfg *config.Config) (metadata.Writer, error) {
	files := metadata.NewFileWriter(cfg.Output.MetadataDir)
	if cfg.Publish == nil {
		return files, nil
	}
	mongo, err := metadata.DialMongo(ctx, *cfg.Publish)
	if err != nil {
		return nil, err
	}
	return metadata.MultiWriter{mongo, files}, nil
}

// expectedShares derives per-trait value shares from the configured layers.
// It returns nil when the layer directories cannot be scanned.
func expectedShares(cfg *config.Config, logger *log.Logger) map[string]map[string]float64 {
	if cfg == nil {
		return nil
	}
	cat, err := catalog.Load(cfg.Layers)
	if err != nil {
		logger.Warn("skipping rarity comparison", "error", errors.UserMessage(err))
		return nil
	}
	s, _ := sampler.New(cat)
	return s.ExpectedShares()
}
