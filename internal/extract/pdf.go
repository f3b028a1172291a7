package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/jackzampolin/bookvoice/internal/structure"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// PDFExtractor reads text-based PDFs. Page text comes from pdftotext,
// the page count and bookmarks from pdfcpu. Each page is one section.
type PDFExtractor struct {
	PdftotextPath string
	Logger        *slog.Logger
}

func (*PDFExtractor) Name() string         { return "pdf" }
func (*PDFExtractor) Extensions() []string { return []string{".pdf"} }

func (e *PDFExtractor) Extract(ctx context.Context, filename string) (*types.Document, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pageCount, err := pdfPageCount(filename)
	if err != nil {
		return nil, err
	}

	raw, err := e.pdftotext(ctx, filename)
	if err != nil {
		return nil, err
	}

	doc := &types.Document{Sections: splitPages(raw, pageCount)}

	bookmarks, err := pdfBookmarks(filename)
	switch {
	case err != nil:
		logger.Warn("pdf outline unavailable", "file", filename, "error", err)
		doc.OutlineStatus = structure.ReasonOutlineUnavailable
	case len(bookmarks) == 0:
		doc.OutlineStatus = structure.ReasonOutlineMissing
	default:
		doc.Outline = bookmarkEntries(bookmarks, pageCount)
		if len(doc.Outline) == 0 {
			doc.OutlineStatus = structure.ReasonOutlineInvalid
		}
	}
	return doc, nil
}

func pdfPageCount(filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()
	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

func pdfBookmarks(filename string) ([]pdfcpu.Bookmark, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return api.Bookmarks(f, nil)
}

func (e *PDFExtractor) pdftotext(ctx context.Context, filename string) (string, error) {
	bin := e.PdftotextPath
	if bin == "" {
		bin = "pdftotext"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-enc", "UTF-8", filename, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// splitPages splits pdftotext output on form feeds and fits the result to
// pageCount, padding missing pages with empty sections.
func splitPages(raw string, pageCount int) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	pages := strings.Split(raw, "\f")
	// pdftotext terminates every page with a form feed.
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" && (pageCount <= 0 || n > pageCount) {
		pages = pages[:n-1]
	}
	if pageCount <= 0 {
		return pages
	}
	if len(pages) > pageCount {
		last := strings.Join(pages[pageCount-1:], "\n")
		pages = append(pages[:pageCount-1], last)
	}
	for len(pages) < pageCount {
		pages = append(pages, "")
	}
	return pages
}

// bookmarkEntries converts bookmarks to outline entries on 0-based page
// sections. Bookmarks pointing outside the document are dropped.
func bookmarkEntries(bms []pdfcpu.Bookmark, pageCount int) []types.OutlineEntry {
	var out []types.OutlineEntry
	for _, bm := range bms {
		children := bookmarkEntries(bm.Kids, pageCount)
		title := strings.Join(strings.Fields(bm.Title), " ")
		page := bm.PageFrom - 1
		if title == "" || page < 0 || page >= pageCount {
			out = append(out, children...)
			continue
		}
		out = append(out, types.OutlineEntry{Title: title, Section: page, Children: children})
	}
	return out
}
