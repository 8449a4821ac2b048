package constraint

import (
	"testing"

	"github.com/matzehuels/tokenforge/pkg/token"
)

func attrs(kv ...string) []token.Attribute {
	out := make([]token.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, token.Attribute{TraitType: kv[i], Value: kv[i+1]})
	}
	return out
}

func pair(at, av, bt, bv string) ForbiddenPair {
	return ForbiddenPair{A: Trait{at, av}, B: Trait{bt, bv}}
}

func TestViolates(t *testing.T) {
	pairs := []ForbiddenPair{
		pair("Hat", "Crown", "Body", "Robot"),
		pair("Eyes", "Laser", "Background", "Night"),
	}

	tests := []struct {
		name  string
		attrs []token.Attribute
		want  bool
	}{
		{"both present", attrs("Body", "Robot", "Hat", "Crown"), true},
		{"only one present", attrs("Body", "Robot", "Hat", "Cap"), false},
		{"second pair", attrs("Background", "Night", "Eyes", "Laser"), true},
		{"value under other trait", attrs("Hat", "Robot", "Body", "Crown"), false},
		{"empty attrs", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Violates(tt.attrs, pairs); got != tt.want {
				t.Errorf("Violates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViolatesNoPairs(t *testing.T) {
	if Violates(attrs("Hat", "Crown"), nil) {
		t.Error("Violates with no pairs should be false")
	}
}

func TestPairIsUnordered(t *testing.T) {
	p := []ForbiddenPair{pair("Body", "Robot", "Hat", "Crown")}
	a := attrs("Hat", "Crown", "Body", "Robot")
	b := attrs("Body", "Robot", "Hat", "Crown")

	if !Violates(a, p) || !Violates(b, p) {
		t.Error("pair should match regardless of attribute order")
	}
}

func TestFirstViolationReturnsConfiguredOrder(t *testing.T) {
	pairs := []ForbiddenPair{
		pair("Hat", "Crown", "Eyes", "Laser"),
		pair("Hat", "Crown", "Body", "Robot"),
	}
	got, ok := FirstViolation(attrs("Hat", "Crown", "Body", "Robot", "Eyes", "Laser"), pairs)
	if !ok {
		t.Fatal("expected a violation")
	}
	if got != pairs[0] {
		t.Errorf("FirstViolation() = %v, want %v", got, pairs[0])
	}
	if got.String() != "(Hat/Crown) + (Eyes/Laser)" {
		t.Errorf("String() = %q", got.String())
	}
}
