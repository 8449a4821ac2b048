package metadata

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/errors"
	tfio "github.com/matzehuels/tokenforge/pkg/io"
	"github.com/matzehuels/tokenforge/pkg/token"
)

func testCombination() token.Combination {
	return token.Combination{
		token.NewLayerChoice("Background", "layers/bg/Blue.png"),
		token.NewLayerChoice("Body", "layers/body/Tabby Cat.png"),
	}
}

func TestBuilderName(t *testing.T) {
	tests := []struct {
		name string
		id   int
		want string
	}{
		{"", 5, "#5"},
		{"Cat", 5, "Cat #5"},
		{"Cat No. {id}", 12, "Cat No. 12"},
		{"{id}/{id}", 3, "3/3"},
	}
	for _, tt := range tests {
		b := NewBuilder(config.MetadataConfig{Name: tt.name})
		if got := b.Name(tt.id); got != tt.want {
			t.Errorf("Name(%q, %d) = %q, want %q", tt.name, tt.id, got, tt.want)
		}
	}
}

func TestBuilderImageURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"ipfs://bafy", "ipfs://bafy/7.png"},
		{"ipfs://bafy/", "ipfs://bafy/7.png"},
		{"https://cdn.example.com/img//", "https://cdn.example.com/img/7.png"},
	}
	for _, tt := range tests {
		b := NewBuilder(config.MetadataConfig{BaseImageURL: tt.base})
		if got := b.ImageURL(7); got != tt.want {
			t.Errorf("ImageURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestBuild(t *testing.T) {
	b := NewBuilder(config.MetadataConfig{
		BaseImageURL: "https://example.com",
		Name:         "Cat",
		Description:  "A cat",
	})

	got := b.Build(3, testCombination())
	want := token.Metadata{
		Name:        "Cat #3",
		Description: "A cat",
		Image:       "https://example.com/3.png",
		Edition:     3,
		Attributes: []token.Attribute{
			{TraitType: "Background", Value: "Blue"},
			{TraitType: "Body", Value: "Tabby Cat"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build() = %+v, want %+v", got, want)
	}
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir)
	md := NewBuilder(config.MetadataConfig{Name: "Cat"}).Build(9, testCombination())

	if err := w.Write(context.Background(), md); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := w.Path(9); got != filepath.Join(dir, "9.json") {
		t.Errorf("Path(9) = %q, want %q", got, filepath.Join(dir, "9.json"))
	}

	read, err := tfio.ImportJSON(w.Path(9))
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if !reflect.DeepEqual(read, md) {
		t.Errorf("ImportJSON() = %+v, want %+v", read, md)
	}
}

func TestFileWriterMissingDir(t *testing.T) {
	w := NewFileWriter(filepath.Join(t.TempDir(), "missing"))
	err := w.Write(context.Background(), token.Metadata{Edition: 1})
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("Write() error = %v, want IO_ERROR", err)
	}
}

type recordingWriter struct {
	got    []int
	err    error
	closed bool
}

func (r *recordingWriter) Write(_ context.Context, md token.Metadata) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, md.Edition)
	return nil
}

func (r *recordingWriter) Close(context.Context) error {
	r.closed = true
	return nil
}

func TestMultiWriter(t *testing.T) {
	a, b := &recordingWriter{}, &recordingWriter{}
	m := MultiWriter{a, b}

	ctx := context.Background()
	for _, id := range []int{1, 2} {
		if err := m.Write(ctx, token.Metadata{Edition: id}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, w := range []*recordingWriter{a, b} {
		if !reflect.DeepEqual(w.got, []int{1, 2}) {
			t.Errorf("got = %v, want [1 2]", w.got)
		}
		if !w.closed {
			t.Error("writer not closed")
		}
	}
}

func TestMultiWriterStopsOnError(t *testing.T) {
	failing := &recordingWriter{err: errors.New(errors.ErrCodeIO, "disk full")}
	after := &recordingWriter{}
	m := MultiWriter{failing, after}

	if err := m.Write(context.Background(), token.Metadata{Edition: 1}); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("Write() error = %v, want IO_ERROR", err)
	}
	if len(after.got) != 0 {
		t.Errorf("later writer received %v after failure", after.got)
	}
}

func TestMongoWriter(t *testing.T) {
	uri := os.Getenv("TOKENFORGE_MONGO_URI")
	if uri == "" {
		t.Skip("TOKENFORGE_MONGO_URI not set")
	}

	ctx := context.Background()
	w, err := DialMongo(ctx, config.PublishConfig{
		MongoURI:   uri,
		Database:   "tokenforge_test",
		Collection: "metadata_" + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("DialMongo: %v", err)
	}
	defer func() {
		_ = w.coll.Drop(ctx)
		_ = w.Close(ctx)
	}()

	md := NewBuilder(config.MetadataConfig{Name: "Cat"}).Build(4, testCombination())
	for i := 0; i < 2; i++ {
		if err := w.Write(ctx, md); err != nil {
			t.Fatalf("Write #%d: %v", i, err)
		}
	}

	n, err := w.coll.CountDocuments(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if n != 1 {
		t.Errorf("CountDocuments() = %d, want 1", n)
	}

	got, err := w.Find(ctx, 4)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !reflect.DeepEqual(got, md) {
		t.Errorf("Find() = %+v, want %+v", got, md)
	}
	if _, err := w.Find(ctx, 99); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Find(99) error = %v, want NOT_FOUND", err)
	}
}
