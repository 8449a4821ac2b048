// Package report audits a generated collection from its metadata records.
//
// The audit tallies how often every trait value occurs, re-checks every
// record against the forbidden pairs, and lists records whose attribute lists
// are identical. When the expected value shares are known (from the weight
// tables the collection was generated with), each trait also gets a
// chi-square goodness-of-fit test.
package report

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/matzehuels/tokenforge/pkg/constraint"
	"github.com/matzehuels/tokenforge/pkg/token"
)

// DefaultMaxExamples caps the number of violations listed in a report.
const DefaultMaxExamples = 20

// Options controls an audit.
type Options struct {
	// Pairs are re-checked against every record. Empty skips the check.
	Pairs []constraint.ForbiddenPair

	// MaxExamples caps Report.Examples. Zero means DefaultMaxExamples.
	MaxExamples int

	// Expected maps trait type to value to expected share. Traits without
	// an entry get no goodness-of-fit test.
	Expected map[string]map[string]float64
}

// Report is the result of an audit.
type Report struct {
	Total  int
	Traits []TraitStats // in order of first appearance

	// ConstraintsChecked is false when no forbidden pairs were given.
	ConstraintsChecked bool
	Violations         int
	Examples           []Violation

	// LabelCollisions groups records whose attribute lists are identical.
	// Distinct layer files can share a trait value, so this is allowed.
	LabelCollisions []Collision
}

// OK reports whether no record violates a forbidden pair.
func (r *Report) OK() bool {
	return r.Violations == 0
}

// TraitStats holds the value distribution of one trait.
type TraitStats struct {
	TraitType string
	Values    []ValueCount // by count descending, then value

	// Fit is set when expected shares were available.
	Fit *Fit
}

// ValueCount is how often one trait value occurred.
type ValueCount struct {
	Value    string
	Count    int
	Share    float64 // Count / Report.Total
	Expected float64 // expected share, 0 when unknown
}

// Fit is a chi-square goodness-of-fit result.
type Fit struct {
	ChiSquare float64
	DF        int
	PValue    float64

	// Unexpected lists observed values that have no expected share.
	Unexpected []string
}

// Violation is one record containing a forbidden pair.
type Violation struct {
	Edition int
	Name    string
	Pair    constraint.ForbiddenPair
}

// Collision lists the editions sharing one attribute list.
type Collision struct {
	Label    string `json:"label"`
	Editions []int  `json:"editions"`
}

// Analyze audits records.
func Analyze(records []token.Metadata, opts Options) *Report {
	if opts.MaxExamples <= 0 {
		opts.MaxExamples = DefaultMaxExamples
	}
	r := &Report{
		Total:              len(records),
		ConstraintsChecked: len(opts.Pairs) > 0,
	}

	counts := make(map[string]map[string]int)
	var order []string
	labels := make(map[string][]int)
	var labelOrder []string

	for _, md := range records {
		for _, a := range md.Attributes {
			values, ok := counts[a.TraitType]
			if !ok {
				values = make(map[string]int)
				counts[a.TraitType] = values
				order = append(order, a.TraitType)
			}
			values[a.Value]++
		}

		label := Label(md.Attributes)
		if _, seen := labels[label]; !seen {
			labelOrder = append(labelOrder, label)
		}
		labels[label] = append(labels[label], md.Edition)

		if !r.ConstraintsChecked {
			continue
		}
		if p, bad := constraint.FirstViolation(md.Attributes, opts.Pairs); bad {
			r.Violations++
			if len(r.Examples) < opts.MaxExamples {
				r.Examples = append(r.Examples, Violation{Edition: md.Edition, Name: md.Name, Pair: p})
			}
		}
	}

	for _, trait := range order {
		r.Traits = append(r.Traits, traitStats(trait, counts[trait], r.Total, opts.Expected[trait]))
	}
	for _, label := range labelOrder {
		if eds := labels[label]; len(eds) > 1 {
			r.LabelCollisions = append(r.LabelCollisions, Collision{Label: label, Editions: eds})
		}
	}
	return r
}

// Label renders an attribute list as "type=value, type=value".
func Label(attrs []token.Attribute) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.TraitType + "=" + a.Value
	}
	return strings.Join(parts, ", ")
}

func traitStats(trait string, counts map[string]int, total int, expected map[string]float64) TraitStats {
	ts := TraitStats{TraitType: trait}
	for value, n := range counts {
		vc := ValueCount{Value: value, Count: n, Expected: expected[value]}
		if total > 0 {
			vc.Share = float64(n) / float64(total)
		}
		ts.Values = append(ts.Values, vc)
	}
	sort.Slice(ts.Values, func(i, j int) bool {
		if ts.Values[i].Count != ts.Values[j].Count {
			return ts.Values[i].Count > ts.Values[j].Count
		}
		return ts.Values[i].Value < ts.Values[j].Value
	})
	if len(expected) > 0 {
		ts.Fit = fit(counts, expected)
	}
	return ts
}

// fit compares observed counts against the expected shares. Values with an
// expected share of zero are left out of the statistic.
func fit(counts map[string]int, expected map[string]float64) *Fit {
	f := &Fit{}
	var n float64
	for value, c := range counts {
		if expected[value] <= 0 {
			f.Unexpected = append(f.Unexpected, value)
			continue
		}
		n += float64(c)
	}
	sort.Strings(f.Unexpected)

	values := make([]string, 0, len(expected))
	for v, p := range expected {
		if p > 0 {
			values = append(values, v)
		}
	}
	sort.Strings(values)

	var sum float64
	for _, v := range values {
		sum += expected[v]
	}
	if len(values) < 2 || n == 0 || sum == 0 {
		f.PValue = math.NaN()
		return f
	}

	obs := make([]float64, len(values))
	exp := make([]float64, len(values))
	for i, v := range values {
		obs[i] = float64(counts[v])
		exp[i] = expected[v] / sum * n
	}
	f.DF = len(values) - 1
	f.ChiSquare = stat.ChiSquare(obs, exp)
	f.PValue = 1 - distuv.ChiSquared{K: float64(f.DF)}.CDF(f.ChiSquare)
	return f
}
