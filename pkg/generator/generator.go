// Package generator turns a layer catalog into a collection of unique tokens.
//
// # Architecture
//
// Every token id is handled by one assembly: a bounded attempt loop that
//
//  1. samples one layer per category,
//  2. rejects the draw if it contains a forbidden trait pair,
//  3. reserves the draw's pattern key in the shared ledger,
//  4. composites the chosen layers, and
//  5. emits the image and metadata record.
//
// A rejected or already-reserved draw sends the loop back to step 1 until the
// attempt budget is spent. A spent budget fails that token only; all other
// tokens keep running.
//
// The [Runner] schedules assemblies for ids 1..count on a fixed-size worker
// pool. The ledger is the only state the workers share.
//
// # Usage
//
//	runner := generator.NewRunner(cat, cfg.ForbiddenPairs(), logger)
//	runner.Builder = metadata.NewBuilder(cfg.Metadata)
//	runner.Sink = generator.NewFileSink(cfg.Output.ImageDir, pngOpts, metadata.NewFileWriter(cfg.Output.MetadataDir))
//
//	result, err := runner.Run(ctx, generator.Options{Count: cfg.Count})
//	if err != nil {
//	    return err // configuration problem or interrupted run
//	}
//	for _, f := range result.Failures {
//	    logger.Error("token failed", "token", f.ID, "error", f.Err)
//	}
package generator

import (
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/errors"
)

// =============================================================================
// Options
// =============================================================================

// Options controls a single run.
type Options struct {
	// Count is the number of tokens to generate, with ids 1..Count.
	Count int

	// Workers bounds the number of tokens assembled concurrently.
	// Zero means GOMAXPROCS.
	Workers int

	// MaxAttempts is the per-token sampling budget. Zero means
	// config.DefaultMaxAttempts.
	MaxAttempts int

	// Seed makes sampling reproducible per token id. Zero seeds every token
	// from the runtime's random source.
	Seed uint64

	// Logger overrides the runner's logger for this run.
	Logger *log.Logger
}

// SetDefaults fills in unset fields.
func (o *Options) SetDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = config.DefaultMaxAttempts
	}
}

// Validate checks the options. Call SetDefaults first.
func (o *Options) Validate() error {
	if o.Count <= 0 {
		return errors.New(errors.ErrCodeConfiguration, "count must be positive, got %d", o.Count)
	}
	if o.Workers <= 0 {
		return errors.New(errors.ErrCodeConfiguration, "workers must be positive, got %d", o.Workers)
	}
	if o.MaxAttempts <= 0 {
		return errors.New(errors.ErrCodeConfiguration, "max attempts must be positive, got %d", o.MaxAttempts)
	}
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result summarizes a run.
type Result struct {
	// RunID identifies the run, including its ledger namespace.
	RunID string

	// Failures lists the tokens that were not emitted, ordered by id.
	Failures []Failure

	// Stats contains counters and timing for the run.
	Stats Stats
}

// OK reports whether every requested token was emitted.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

// Failure records why a token id produced no output.
type Failure struct {
	ID  int
	Err error
}

// Stats contains run statistics.
type Stats struct {
	Requested int
	Emitted   int
	Failed    int

	// Attempts counts every sampled combination across all tokens.
	Attempts int64

	// Rejected counts draws discarded for containing a forbidden pair.
	Rejected int64

	// Collisions counts draws whose pattern key was already reserved.
	Collisions int64

	Duration time.Duration
}
