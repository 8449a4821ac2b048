// Package metadata builds token metadata records and delivers them to one or
// more destinations.
//
// Records always go to disk as <metadata_dir>/<id>.json. When publishing is
// configured they are additionally upserted into a MongoDB collection keyed
// by edition, so re-publishing a run overwrites rather than duplicates.
package metadata

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/errors"
	tfio "github.com/matzehuels/tokenforge/pkg/io"
	"github.com/matzehuels/tokenforge/pkg/token"
)

// IDPlaceholder is replaced by the token id in name templates.
const IDPlaceholder = "{id}"

// Builder turns a combination into the metadata record for a token id.
type Builder struct {
	name        string
	description string
	baseURL     string
}

// NewBuilder creates a builder from the metadata configuration.
func NewBuilder(cfg config.MetadataConfig) *Builder {
	return &Builder{
		name:        cfg.Name,
		description: cfg.Description,
		baseURL:     strings.TrimRight(cfg.BaseImageURL, "/"),
	}
}

// Name renders the token name for id. A template containing {id} is
// substituted; otherwise the id is appended as "<name> #<id>", or "#<id>"
// when no name is configured.
func (b *Builder) Name(id int) string {
	sid := strconv.Itoa(id)
	switch {
	case strings.Contains(b.name, IDPlaceholder):
		return strings.ReplaceAll(b.name, IDPlaceholder, sid)
	case b.name == "":
		return "#" + sid
	default:
		return b.name + " #" + sid
	}
}

// ImageURL returns the public image reference for id.
func (b *Builder) ImageURL(id int) string {
	return b.baseURL + "/" + strconv.Itoa(id) + ".png"
}

// Build returns the metadata record for id. Attributes follow the
// combination's category order.
func (b *Builder) Build(id int, combo token.Combination) token.Metadata {
	return token.Metadata{
		Name:        b.Name(id),
		Description: b.description,
		Image:       b.ImageURL(id),
		Edition:     id,
		Attributes:  combo.Attributes(),
	}
}

// =============================================================================
// Writers
// =============================================================================

// Writer delivers metadata records. Implementations must be safe for
// concurrent use; every token id is written at most once per run.
type Writer interface {
	Write(ctx context.Context, md token.Metadata) error
	Close(ctx context.Context) error
}

// FileWriter stores each record as <dir>/<edition>.json.
type FileWriter struct {
	dir string
}

// NewFileWriter creates a writer for dir. The directory must exist.
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{dir: dir}
}

// Path returns the file a record with the given edition is written to.
func (w *FileWriter) Path(edition int) string {
	return filepath.Join(w.dir, strconv.Itoa(edition)+".json")
}

// Write stores md. Failures carry the IO_ERROR code.
func (w *FileWriter) Write(_ context.Context, md token.Metadata) error {
	path := w.Path(md.Edition)
	if err := tfio.ExportJSON(md, path); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write metadata %s", path)
	}
	return nil
}

// Close is a no-op.
func (w *FileWriter) Close(context.Context) error { return nil }

// MultiWriter writes every record to each writer in order, stopping at the
// first failure.
type MultiWriter []Writer

// Write implements Writer.
func (m MultiWriter) Write(ctx context.Context, md token.Metadata) error {
	for _, w := range m {
		if err := w.Write(ctx, md); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and returns the first error.
func (m MultiWriter) Close(ctx context.Context) error {
	var first error
	for _, w := range m {
		if err := w.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ Writer = (*FileWriter)(nil)
	_ Writer = MultiWriter(nil)
	_ Writer = (*MongoWriter)(nil)
)
