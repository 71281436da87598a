//go:build !cgo

package pyimports

import (
	"context"
	"log/slog"
)

// Extractor collects the imports of Python files.
// This is a stub implementation for non-CGO builds.
type Extractor struct{}

// NewExtractor creates an extractor.
// The stub ignores its arguments.
func NewExtractor(searchPaths []string, logger *slog.Logger) *Extractor {
	return &Extractor{}
}

// Extract implements skip.Extractor.
// Stub implementation returns an error.
func (x *Extractor) Extract(path string) ([]string, []string, error) {
	return nil, nil, ErrNoCGO
}

// ExtractSource collects the imports of source.
// Stub implementation returns an error.
func (x *Extractor) ExtractSource(ctx context.Context, path string, source []byte) (*Imports, error) {
	return nil, ErrNoCGO
}
