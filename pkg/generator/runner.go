package generator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/tokenforge/pkg/cache"
	"github.com/matzehuels/tokenforge/pkg/catalog"
	"github.com/matzehuels/tokenforge/pkg/compose"
	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/constraint"
	"github.com/matzehuels/tokenforge/pkg/errors"
	tfio "github.com/matzehuels/tokenforge/pkg/io"
	"github.com/matzehuels/tokenforge/pkg/ledger"
	"github.com/matzehuels/tokenforge/pkg/metadata"
	"github.com/matzehuels/tokenforge/pkg/observability"
	"github.com/matzehuels/tokenforge/pkg/sampler"
	"github.com/matzehuels/tokenforge/pkg/token"
)

// Sink receives every emitted token exactly once.
// Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, tok *token.Token) error
}

// Runner generates tokens from a catalog.
//
// The exported fields are collaborators with working defaults set by
// [NewRunner]; replace them before calling Run. A Runner executes one run at
// a time.
type Runner struct {
	Catalog *catalog.Catalog
	Sampler *sampler.Sampler
	Pairs   []constraint.ForbiddenPair
	Ledger  ledger.Ledger
	Loader  compose.Loader
	Builder *metadata.Builder
	Sink    Sink
	Logger  *log.Logger

	// RunID identifies this runner's run; it also namespaces remote ledgers.
	RunID string

	// Warnings holds the SAMPLING_WARNING errors raised while compiling
	// weight tables. Affected categories sample uniformly.
	Warnings []error

	stats counters
}

type counters struct {
	attempts   atomic.Int64
	rejected   atomic.Int64
	collisions atomic.Int64
}

func (c *counters) reset() {
	c.attempts.Store(0)
	c.rejected.Store(0)
	c.collisions.Store(0)
}

// NewRunner creates a runner for cat. It defaults to an in-memory ledger,
// a caching layer loader, metadata without name or base URL, and no sink.
// A nil logger discards output.
func NewRunner(cat *catalog.Catalog, pairs []constraint.ForbiddenPair, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s, warnings := sampler.New(cat)
	for _, w := range warnings {
		logger.Warn("falling back to uniform sampling", "error", errors.UserMessage(w))
	}
	return &Runner{
		Catalog:  cat,
		Sampler:  s,
		Pairs:    pairs,
		Ledger:   ledger.NewMemory(),
		Loader:   tfio.NewLayerLoader(cache.NewMemoryCache(0)),
		Builder:  metadata.NewBuilder(config.MetadataConfig{}),
		Logger:   logger,
		RunID:    uuid.NewString(),
		Warnings: warnings,
	}
}

// Run generates tokens 1..opts.Count.
//
// Configuration problems, including a count larger than the number of
// distinct combinations, fail before any token starts. Individual token
// failures are collected in Result.Failures and do not stop other tokens.
// If ctx is cancelled, tokens that have not started fail with the context
// error and Run returns the partial result together with ctx.Err().
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if r.Sink == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "no output sink configured")
	}
	if err := r.Catalog.CheckFeasible(opts.Count); err != nil {
		return nil, err
	}
	logger := r.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	hooks := observability.Generation()
	hooks.OnRunStart(ctx, r.RunID, opts.Count)
	logger.Info("starting run",
		"run", r.RunID,
		"count", opts.Count,
		"workers", opts.Workers,
		"combinations", r.Catalog.MaxCombinations().String())

	r.stats.reset()
	start := time.Now()
	var (
		mu       sync.Mutex
		failures []Failure
		emitted  atomic.Int64
	)
	fail := func(id int, err error) {
		mu.Lock()
		failures = append(failures, Failure{ID: id, Err: err})
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(opts.Workers)
	for id := 1; id <= opts.Count; id++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(id, err)
				return nil
			}
			tokenStart := time.Now()
			hooks.OnTokenStart(ctx, id)
			tok, err := r.Assemble(ctx, id, opts)
			attempts := 0
			if tok != nil {
				attempts = tok.Attempts
			}
			hooks.OnTokenComplete(ctx, id, attempts, time.Since(tokenStart), err)
			if err != nil {
				logger.Error("token failed", "token", id, "error", errors.UserMessage(err))
				fail(id, err)
				return nil
			}
			emitted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })
	result := &Result{
		RunID:    r.RunID,
		Failures: failures,
		Stats: Stats{
			Requested:  opts.Count,
			Emitted:    int(emitted.Load()),
			Failed:     len(failures),
			Attempts:   r.stats.attempts.Load(),
			Rejected:   r.stats.rejected.Load(),
			Collisions: r.stats.collisions.Load(),
			Duration:   time.Since(start),
		},
	}
	hooks.OnRunComplete(ctx, r.RunID, result.Stats.Emitted, result.Stats.Failed, result.Stats.Duration)
	logger.Info("run finished",
		"emitted", result.Stats.Emitted,
		"failed", result.Stats.Failed,
		"attempts", result.Stats.Attempts,
		"duration", result.Stats.Duration)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// =============================================================================
// File Sink
// =============================================================================

// FileSink writes <image_dir>/<id>.png and hands the metadata record to a
// metadata writer. The image is written first, so a metadata record never
// points at a missing image. If the metadata write fails the image is
// removed again, leaving no output for the failed token.
type FileSink struct {
	ImageDir string
	PNG      tfio.PNGOptions
	Metadata metadata.Writer
}

// NewFileSink creates a sink writing images to imageDir.
func NewFileSink(imageDir string, png tfio.PNGOptions, md metadata.Writer) *FileSink {
	return &FileSink{ImageDir: imageDir, PNG: png, Metadata: md}
}

// ImagePath returns the output image path for id.
func (s *FileSink) ImagePath(id int) string {
	return filepath.Join(s.ImageDir, strconv.Itoa(id)+".png")
}

// Emit implements Sink.
func (s *FileSink) Emit(ctx context.Context, tok *token.Token) error {
	path := s.ImagePath(tok.ID)
	if err := tfio.ExportPNG(path, tok.Image, s.PNG); err != nil {
		return err
	}
	if err := s.Metadata.Write(ctx, tok.Metadata); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

var _ Sink = (*FileSink)(nil)
