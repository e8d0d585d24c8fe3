// Package extractor dispatches text extraction to a format-specific backend.
package extractor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// Format extracts text from a file on local disk.
type Format interface {
	Extract(ctx context.Context, path string) (string, error)
}

type Router struct {
	formats map[string]Format
}

func NewRouter() *Router {
	return &Router{formats: make(map[string]Format)}
}

// Register binds format to each file type (extension without the dot).
func (r *Router) Register(format Format, fileTypes ...string) *Router {
	for _, ft := range fileTypes {
		r.formats[normalize(ft)] = format
	}
	return r
}

func (r *Router) Supports(fileType string) bool {
	_, ok := r.formats[normalize(fileType)]
	return ok
}

func (r *Router) FileTypes() []string {
	out := make([]string, 0, len(r.formats))
	for ft := range r.formats {
		out = append(out, ft)
	}
	sort.Strings(out)
	return out
}

func (r *Router) Extract(ctx context.Context, path, fileType string) (string, error) {
	format, ok := r.formats[normalize(fileType)]
	if !ok {
		return "", domain.WrapError(domain.ErrExtractionFailed, "extract text", fmt.Errorf("unsupported file type %q", fileType))
	}
	text, err := format.Extract(ctx, path)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtractionFailed, "extract "+normalize(fileType), err)
	}
	return text, nil
}

func normalize(fileType string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
}
