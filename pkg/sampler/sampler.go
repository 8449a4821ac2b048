// Package sampler draws one candidate layer per category for a token attempt.
//
// Weighted selection uses inverse-transform sampling over a cumulative
// weight table that is built once per category and shared read-only. Each
// caller supplies its own *rand.Rand, so concurrent workers never contend on
// random state.
package sampler

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/matzehuels/tokenforge/pkg/catalog"
	"github.com/matzehuels/tokenforge/pkg/errors"
	"github.com/matzehuels/tokenforge/pkg/token"
)

// Table is the precomputed selection distribution for one category.
type Table struct {
	category string
	files    []string
	cum      []float64 // cumulative weights; nil when sampling uniformly
	total    float64
}

// NewTable builds the distribution for cat.
//
// Without a weight table every file is equally likely. With one, every
// weight must be finite and non-negative and at least one must be positive.
// When that does not hold the returned table samples uniformly and the error
// carries SAMPLING_WARNING: the table is still usable and the caller decides
// whether to log and continue.
func NewTable(cat catalog.Category) (*Table, error) {
	t := &Table{category: cat.Name, files: cat.Files}
	if cat.Weights == nil {
		return t, nil
	}

	cum := make([]float64, len(cat.Files))
	var total float64
	for i, f := range cat.Files {
		w := cat.Weight(f)
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return t, errors.New(errors.ErrCodeSamplingWarning,
				"layer %q: invalid rarity weight %v for %s; falling back to uniform selection", cat.Name, w, f)
		}
		total += w
		cum[i] = total
	}
	if total <= 0 || math.IsInf(total, 0) {
		return t, errors.New(errors.ErrCodeSamplingWarning,
			"layer %q: rarity weights sum to %v; falling back to uniform selection", cat.Name, total)
	}

	t.cum = cum
	t.total = total
	return t, nil
}

// Category returns the category name this table samples for.
func (t *Table) Category() string { return t.category }

// Files returns the candidate paths in table order.
func (t *Table) Files() []string { return t.files }

// Uniform reports whether the table selects every file with equal probability.
func (t *Table) Uniform() bool { return t.cum == nil }

// Probability returns the selection probability of the file at index i.
func (t *Table) Probability(i int) float64 {
	if t.cum == nil {
		return 1 / float64(len(t.files))
	}
	prev := 0.0
	if i > 0 {
		prev = t.cum[i-1]
	}
	return (t.cum[i] - prev) / t.total
}

// PickIndex returns the index of one file drawn from the distribution.
func (t *Table) PickIndex(r *rand.Rand) int {
	if t.cum == nil {
		return r.IntN(len(t.files))
	}
	u := r.Float64() * t.total
	i := sort.Search(len(t.cum), func(i int) bool { return t.cum[i] > u })
	if i == len(t.cum) {
		// u rounded up to total; take the last file with positive weight.
		i = sort.SearchFloat64s(t.cum, t.total)
	}
	return i
}

// Pick returns one file path drawn from the distribution.
func (t *Table) Pick(r *rand.Rand) string {
	return t.files[t.PickIndex(r)]
}

// Sampler draws a full combination, one choice per category.
type Sampler struct {
	tables []*Table
}

// New builds a sampler for every category in cat. Invalid weight tables do
// not prevent construction; their SAMPLING_WARNING errors are returned so
// the caller can surface them.
func New(cat *catalog.Catalog) (*Sampler, []error) {
	s := &Sampler{tables: make([]*Table, 0, cat.Len())}
	var warnings []error
	for _, c := range cat.Categories {
		t, err := NewTable(c)
		if err != nil {
			warnings = append(warnings, err)
		}
		s.tables = append(s.tables, t)
	}
	return s, warnings
}

// Tables returns the per-category tables in declaration order.
func (s *Sampler) Tables() []*Table {
	return s.tables
}

// Sample draws one combination. Draws are independent of each other.
func (s *Sampler) Sample(r *rand.Rand) token.Combination {
	combo := make(token.Combination, len(s.tables))
	for i, t := range s.tables {
		combo[i] = token.NewLayerChoice(t.category, t.Pick(r))
	}
	return combo
}

// NewRand returns a generator for one worker. A zero seed draws the state
// from the runtime's per-thread source; otherwise the stream is fully
// determined by (seed, stream).
func NewRand(seed, stream uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, stream))
}

// ExpectedShares returns, per category, the probability of each trait value.
// Files that map to the same value have their probabilities summed.
func (s *Sampler) ExpectedShares() map[string]map[string]float64 {
	shares := make(map[string]map[string]float64, len(s.tables))
	for _, t := range s.tables {
		values := make(map[string]float64, len(t.files))
		for i, f := range t.files {
			values[token.ValueFromPath(f)] += t.Probability(i)
		}
		shares[t.category] = values
	}
	return shares
}
