// Package catalog discovers the candidate layer files for every trait
// category and answers feasibility questions about the combination space.
//
// A [Catalog] is immutable once built and is shared read-only by all
// generation workers.
package catalog

import (
	"io/fs"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/errors"
)

// LayerExt is the file extension (case-insensitive) of candidate layers.
const LayerExt = ".png"

// Category is one trait dimension and its candidate files.
type Category struct {
	// Name is unique across categories and becomes the metadata trait_type.
	Name string

	// Files lists candidate paths in lexical walk order.
	Files []string

	// Weights maps a file name (base name with extension) to its rarity
	// weight. Nil means every file weighs the same.
	Weights map[string]float64
}

// Weight returns the configured weight for path, or 1.0 when the file has
// no entry in the weight table.
func (c *Category) Weight(path string) float64 {
	if w, ok := c.Weights[filepath.Base(path)]; ok {
		return w
	}
	return 1.0
}

// Catalog is the ordered list of categories. Order is stacking order.
type Catalog struct {
	Categories []Category
}

// New builds a catalog from already-resolved categories.
// It fails with CONFIGURATION_ERROR if a category is unnamed, duplicated or
// has no candidate files.
func New(categories ...Category) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "catalog has no categories")
	}
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.Name == "" {
			return nil, errors.New(errors.ErrCodeConfiguration, "category name cannot be empty")
		}
		if seen[c.Name] {
			return nil, errors.New(errors.ErrCodeConfiguration, "duplicate category %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Files) == 0 {
			return nil, errors.New(errors.ErrCodeConfiguration, "category %q has no candidate files", c.Name)
		}
	}
	return &Catalog{Categories: categories}, nil
}

// Load scans every configured layer directory recursively for PNG files.
// A missing directory or a directory without PNG files is a
// CONFIGURATION_ERROR.
func Load(layers []config.LayerConfig) (*Catalog, error) {
	categories := make([]Category, 0, len(layers))
	for _, l := range layers {
		files, err := Scan(l.Directory)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "scan layer %q (%s)", l.Name, l.Directory)
		}
		if len(files) == 0 {
			return nil, errors.New(errors.ErrCodeConfiguration, "layer %q (%s) has no PNG files", l.Name, l.Directory)
		}
		categories = append(categories, Category{
			Name:    l.Name,
			Files:   files,
			Weights: l.Rarity,
		})
	}
	return New(categories...)
}

// Scan returns every PNG file under dir, in lexical order.
// Unreadable entries below the root are skipped; an unreadable root is an error.
func Scan(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), LayerExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	return len(c.Categories)
}

// Names returns the category names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// MaxCombinations returns the number of distinct layer combinations: the
// product of the per-category candidate counts. The result does not
// overflow regardless of catalog size.
func (c *Catalog) MaxCombinations() *big.Int {
	total := big.NewInt(1)
	for _, cat := range c.Categories {
		total.Mul(total, big.NewInt(int64(len(cat.Files))))
	}
	return total
}

// CheckFeasible fails with CONFIGURATION_ERROR when count unique tokens
// cannot exist in this catalog.
func (c *Catalog) CheckFeasible(count int) error {
	limit := c.MaxCombinations()
	if big.NewInt(int64(count)).Cmp(limit) > 0 {
		return errors.New(errors.ErrCodeConfiguration,
			"requested %d tokens exceeds the %s possible unique combinations; add layer variations or reduce count",
			count, limit.String())
	}
	return nil
}
