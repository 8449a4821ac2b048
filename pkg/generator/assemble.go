package generator

import (
	"context"
	"math/rand/v2"

	"github.com/matzehuels/tokenforge/pkg/compose"
	"github.com/matzehuels/tokenforge/pkg/constraint"
	"github.com/matzehuels/tokenforge/pkg/errors"
	"github.com/matzehuels/tokenforge/pkg/observability"
	"github.com/matzehuels/tokenforge/pkg/sampler"
	"github.com/matzehuels/tokenforge/pkg/token"
)

// State is a step of the per-token attempt loop.
type State int

const (
	StateSampling   State = iota // draw a combination and try to reserve it
	StateRetry                   // draw was rejected; sample again
	StateReserved                // pattern key owned by this token
	StateComposited              // image rendered
	StateEmitted                 // image and metadata delivered (terminal)
	StateExhausted               // attempt budget spent (terminal)
)

var stateNames = [...]string{
	StateSampling:   "sampling",
	StateRetry:      "retry",
	StateReserved:   "reserved",
	StateComposited: "composited",
	StateEmitted:    "emitted",
	StateExhausted:  "exhausted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// assembly is the worker-local state of one token's attempt loop.
type assembly struct {
	id       int
	budget   int
	attempts int
	state    State
	rng      *rand.Rand

	combo token.Combination
	tok   *token.Token
}

// Assemble runs the attempt loop for one token id and returns the emitted
// token. It fails with RETRY_EXHAUSTED when no valid, unreserved combination
// was drawn within the budget, with IMAGE_ERROR or IO_ERROR when rendering or
// emitting fails, and with INTERNAL_ERROR when the ledger is unavailable.
func (r *Runner) Assemble(ctx context.Context, id int, opts Options) (*token.Token, error) {
	opts.SetDefaults()
	logger := r.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}
	hooks := observability.Generation()

	a := &assembly{
		id:     id,
		budget: opts.MaxAttempts,
		state:  StateSampling,
		rng:    sampler.NewRand(opts.Seed, uint64(id)),
	}

	for {
		switch a.state {
		case StateSampling:
			if a.attempts >= a.budget {
				a.state = StateExhausted
				continue
			}
			a.attempts++
			r.stats.attempts.Add(1)
			a.combo = r.Sampler.Sample(a.rng)

			if pair, bad := constraint.FirstViolation(a.combo.Attributes(), r.Pairs); bad {
				r.stats.rejected.Add(1)
				hooks.OnAttemptRejected(ctx, id, observability.RejectConstraint)
				logger.Debug("forbidden pair", "token", id, "attempt", a.attempts, "pair", pair)
				a.state = StateRetry
				continue
			}

			ok, err := r.Ledger.Reserve(ctx, a.combo.Key())
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "reserve pattern for token %d", id)
			}
			if !ok {
				r.stats.collisions.Add(1)
				hooks.OnAttemptRejected(ctx, id, observability.RejectCollision)
				logger.Debug("pattern taken", "token", id, "attempt", a.attempts)
				a.state = StateRetry
				continue
			}
			a.state = StateReserved

		case StateRetry:
			a.state = StateSampling

		case StateReserved:
			img, err := compose.Compose(a.combo.Paths(), r.Loader)
			if err != nil {
				return nil, err
			}
			a.tok = &token.Token{
				ID:          id,
				Combination: a.combo,
				Image:       img,
				Metadata:    r.Builder.Build(id, a.combo),
				Attempts:    a.attempts,
			}
			a.state = StateComposited

		case StateComposited:
			if err := r.Sink.Emit(ctx, a.tok); err != nil {
				if errors.GetCode(err) == "" {
					err = errors.Wrap(errors.ErrCodeIO, err, "emit token %d", id)
				}
				return nil, err
			}
			a.state = StateEmitted

		case StateEmitted:
			logger.Debug("token emitted", "token", id, "attempts", a.attempts)
			return a.tok, nil

		case StateExhausted:
			return nil, errors.New(errors.ErrCodeRetryExhausted,
				"token %d: no unique combination satisfying the constraints after %d attempts", id, a.attempts)
		}
	}
}
