package catalog

import (
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/errors"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.png"))
	touch(t, filepath.Join(dir, "a.PNG"))
	touch(t, filepath.Join(dir, "nested", "c.png"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "preview.jpg"))

	files, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.PNG"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "nested", "c.png"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Scan() = %v, want %v", files, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "bg", "Blue.png"))
	touch(t, filepath.Join(dir, "bg", "Red.png"))
	touch(t, filepath.Join(dir, "body", "Cat.png"))

	cat, err := Load([]config.LayerConfig{
		{Name: "Background", Directory: filepath.Join(dir, "bg"), Rarity: map[string]float64{"Red.png": 3}},
		{Name: "Body", Directory: filepath.Join(dir, "body")},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cat.Names(); !reflect.DeepEqual(got, []string{"Background", "Body"}) {
		t.Errorf("Names() = %v", got)
	}
	if n := len(cat.Categories[0].Files); n != 2 {
		t.Errorf("Background files = %d, want 2", n)
	}
	bg := cat.Categories[0]
	if w := bg.Weight(filepath.Join(dir, "bg", "Red.png")); w != 3 {
		t.Errorf("Weight(Red.png) = %v, want 3", w)
	}
	if w := bg.Weight(filepath.Join(dir, "bg", "Blue.png")); w != 1 {
		t.Errorf("Weight(Blue.png) = %v, want 1 (default)", w)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir, "textonly", "readme.txt"))

	tests := []struct {
		name string
		dir  string
	}{
		{"missing directory", filepath.Join(dir, "nope")},
		{"empty directory", empty},
		{"no png files", filepath.Join(dir, "textonly")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]config.LayerConfig{{Name: "Layer", Directory: tt.dir}})
			if !errors.Is(err, errors.ErrCodeConfiguration) {
				t.Errorf("Load() error = %v, want CONFIGURATION_ERROR", err)
			}
		})
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("New() with no categories should fail")
	}
	if _, err := New(Category{Name: "A"}); err == nil {
		t.Error("category without files should fail")
	}
	if _, err := New(Category{Name: "A", Files: []string{"a"}}, Category{Name: "A", Files: []string{"b"}}); err == nil {
		t.Error("duplicate category should fail")
	}
	if _, err := New(Category{Files: []string{"a"}}); err == nil {
		t.Error("unnamed category should fail")
	}
}

func files(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.Repeat("f", i+1)
	}
	return out
}

func TestMaxCombinations(t *testing.T) {
	cat, err := New(
		Category{Name: "A", Files: files(2)},
		Category{Name: "B", Files: files(3)},
		Category{Name: "C", Files: files(7)},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := cat.MaxCombinations(); got.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("MaxCombinations() = %s, want 42", got)
	}
}

func TestMaxCombinationsDoesNotOverflow(t *testing.T) {
	// 40 categories of 1000 files each: 10^120 combinations.
	cats := make([]Category, 40)
	many := files(1000)
	for i := range cats {
		cats[i] = Category{Name: strings.Repeat("c", i+1), Files: many}
	}
	cat, err := New(cats...)
	if err != nil {
		t.Fatal(err)
	}

	want := new(big.Int).Exp(big.NewInt(10), big.NewInt(120), nil)
	if got := cat.MaxCombinations(); got.Cmp(want) != 0 {
		t.Errorf("MaxCombinations() = %s, want 10^120", got)
	}
	if err := cat.CheckFeasible(1 << 62); err != nil {
		t.Errorf("CheckFeasible(huge) = %v, want nil", err)
	}
}

func TestCheckFeasible(t *testing.T) {
	cat, err := New(
		Category{Name: "A", Files: files(2)},
		Category{Name: "B", Files: files(2)},
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := cat.CheckFeasible(4); err != nil {
		t.Errorf("CheckFeasible(max) = %v, want nil", err)
	}
	err = cat.CheckFeasible(5)
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("CheckFeasible(max+1) = %v, want CONFIGURATION_ERROR", err)
	}
}
