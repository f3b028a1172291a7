// Package extract reads source books into documents.
//
// Each supported format has an Extractor. Extractors return the raw text
// split into sections (pages for PDF, spine documents for EPUB, a single
// section for plain text) and whatever navigation outline the format offers.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/types"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Extractor reads one source format.
type Extractor interface {
	Name() string
	Extensions() []string
	Extract(ctx context.Context, path string) (*types.Document, error)
}

// Options configures the built-in extractors.
type Options struct {
	// PdftotextPath is the pdftotext binary. Defaults to "pdftotext" on PATH.
	PdftotextPath string
}

// Extractors returns the built-in extractors.
func Extractors(opts Options) []Extractor {
	return []Extractor{
		&PDFExtractor{PdftotextPath: opts.PdftotextPath},
		&EPUBExtractor{},
		&TextExtractor{},
	}
}

// For picks the extractor for path by its extension.
func For(path string, opts Options) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extractors(opts) {
		for _, x := range e.Extensions() {
			if ext == x {
				return e, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// Extract reads path with the matching extractor.
func Extract(ctx context.Context, path string, opts Options) (*types.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	e, err := For(path, opts)
	if err != nil {
		return nil, err
	}
	doc, err := e.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", e.Name(), err)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// SupportedFormats lists extractor names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, e := range Extractors(Options{}) {
		out = append(out, e.Name()+" ("+strings.Join(e.Extensions(), ", ")+")")
	}
	return out
}
