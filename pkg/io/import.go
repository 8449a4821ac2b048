package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/tokenforge/pkg/token"
)

// ReadJSON decodes a single metadata record from r.
//
// Unknown fields are ignored so records enriched by other tools can still
// be audited. ReadJSON does not close r.
func ReadJSON(r io.Reader) (token.Metadata, error) {
	var md token.Metadata
	if err := json.NewDecoder(r).Decode(&md); err != nil {
		return token.Metadata{}, fmt.Errorf("decode: %w", err)
	}
	return md, nil
}

// ImportJSON reads a JSON file at path and returns the decoded record.
// The error wraps the underlying cause with the file path for context.
func ImportJSON(path string) (token.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return token.Metadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	md, err := ReadJSON(f)
	if err != nil {
		return token.Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return md, nil
}

// ImportDir reads every *.json file directly inside dir.
//
// Records are returned sorted by numeric file name (1.json, 2.json, ...,
// 10.json); files with non-numeric names follow in lexical order. The first
// unreadable file aborts the import.
func ImportDir(dir string) ([]token.Metadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		return lessByID(names[i], names[j])
	})

	records := make([]token.Metadata, 0, len(names))
	for _, name := range names {
		md, err := ImportJSON(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		records = append(records, md)
	}
	return records, nil
}

func lessByID(a, b string) bool {
	ai, aerr := strconv.Atoi(strings.TrimSuffix(a, filepath.Ext(a)))
	bi, berr := strconv.Atoi(strings.TrimSuffix(b, filepath.Ext(b)))
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
