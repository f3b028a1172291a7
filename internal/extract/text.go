package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/types"
)

// TextExtractor reads plain text and Markdown files as one section.
// Markdown headings are left in place for heading detection.
type TextExtractor struct{}

func (*TextExtractor) Name() string         { return "text" }
func (*TextExtractor) Extensions() []string { return []string{".txt", ".md", ".markdown"} }

func (*TextExtractor) Extract(ctx context.Context, path string) (*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return &types.Document{Sections: []string{text}}, nil
}
