// Package constraint evaluates forbidden trait pairs against a token's
// attributes.
//
// Evaluation is a pure function of its inputs and is safe to call from any
// number of goroutines without synchronization.
package constraint

import (
	"fmt"

	"github.com/matzehuels/tokenforge/pkg/token"
)

// Trait is a single (trait type, value) fact.
type Trait struct {
	TraitType string `json:"trait_type" yaml:"trait_type" toml:"trait_type"`
	Value     string `json:"value" yaml:"value" toml:"value"`
}

// String renders the trait as "type/value".
func (t Trait) String() string {
	return t.TraitType + "/" + t.Value
}

// ForbiddenPair disallows A and B from appearing together in one token.
// The pair is unordered.
type ForbiddenPair struct {
	A Trait `json:"a" yaml:"a" toml:"a"`
	B Trait `json:"b" yaml:"b" toml:"b"`
}

// String renders the pair for logs and reports.
func (p ForbiddenPair) String() string {
	return fmt.Sprintf("(%s) + (%s)", p.A, p.B)
}

// Violates reports whether attrs contain both members of any pair.
func Violates(attrs []token.Attribute, pairs []ForbiddenPair) bool {
	_, ok := FirstViolation(attrs, pairs)
	return ok
}

// FirstViolation returns the first pair, in configuration order, whose two
// members are both present in attrs.
func FirstViolation(attrs []token.Attribute, pairs []ForbiddenPair) (ForbiddenPair, bool) {
	if len(pairs) == 0 {
		return ForbiddenPair{}, false
	}

	present := make(map[Trait]struct{}, len(attrs))
	for _, a := range attrs {
		present[Trait{TraitType: a.TraitType, Value: a.Value}] = struct{}{}
	}

	for _, p := range pairs {
		if _, ok := present[p.A]; !ok {
			continue
		}
		if _, ok := present[p.B]; ok {
			return p, true
		}
	}
	return ForbiddenPair{}, false
}
