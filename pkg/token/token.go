package token

import (
	"image"
	"path/filepath"
	"strings"
)

// KeySeparator joins file paths into a pattern key.
const KeySeparator = "|"

// UnknownValue is the trait value used when a file name has no usable stem.
const UnknownValue = "Unknown"

// LayerChoice is one selected candidate for one category within a token attempt.
type LayerChoice struct {
	Path      string // source file path, as discovered by the catalog
	TraitType string // category name
	Value     string // file base name without extension
}

// NewLayerChoice builds a LayerChoice for path, deriving the trait value from
// the file name.
func NewLayerChoice(traitType, path string) LayerChoice {
	return LayerChoice{
		Path:      path,
		TraitType: traitType,
		Value:     ValueFromPath(path),
	}
}

// ValueFromPath returns the base name of path without its extension.
// "layers/Hat/Red Cap.png" yields "Red Cap".
func ValueFromPath(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return UnknownValue
	}
	// Dotfiles such as ".png" keep their full name.
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		return stem
	}
	return base
}

// Combination is an ordered sequence of layer choices, one per category, in
// category declaration order.
type Combination []LayerChoice

// Key returns the pattern key: every chosen path joined by KeySeparator.
func (c Combination) Key() string {
	var b strings.Builder
	for i, l := range c {
		if i > 0 {
			b.WriteString(KeySeparator)
		}
		b.WriteString(l.Path)
	}
	return b.String()
}

// Paths returns the chosen file paths in stacking order (bottom first).
func (c Combination) Paths() []string {
	paths := make([]string, len(c))
	for i, l := range c {
		paths[i] = l.Path
	}
	return paths
}

// Attributes converts the combination to its metadata attribute list,
// preserving order.
func (c Combination) Attributes() []Attribute {
	attrs := make([]Attribute, len(c))
	for i, l := range c {
		attrs[i] = Attribute{TraitType: l.TraitType, Value: l.Value}
	}
	return attrs
}

// Attribute is a single trait entry in token metadata.
type Attribute struct {
	TraitType string `json:"trait_type" bson:"trait_type"`
	Value     string `json:"value" bson:"value"`
}

// Metadata is the JSON record emitted for every token.
type Metadata struct {
	Name        string      `json:"name" bson:"name"`
	Description string      `json:"description" bson:"description"`
	Image       string      `json:"image" bson:"image"`
	Edition     int         `json:"edition" bson:"edition"`
	Attributes  []Attribute `json:"attributes" bson:"attributes"`
}

// Token is the final output unit of a successful attempt.
type Token struct {
	ID          int
	Combination Combination
	Image       *image.NRGBA
	Metadata    Metadata

	// Attempts is the number of sampling rounds it took to reserve the pattern.
	Attempts int
}

// Key returns the pattern key of the token's combination.
func (t *Token) Key() string {
	return t.Combination.Key()
}
