package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"

	"github.com/jackzampolin/bookvoice/internal/structure"
	"github.com/jackzampolin/bookvoice/internal/types"
)

const ncxMediaType = "application/x-dtbncx+xml"

var errNoNCX = errors.New("no NCX file found in epub")

// EPUBExtractor reads EPUB files. Each spine document becomes one section
// and the NCX table of contents becomes the outline.
type EPUBExtractor struct{}

func (*EPUBExtractor) Name() string         { return "epub" }
func (*EPUBExtractor) Extensions() []string { return []string{".epub"} }

func (*EPUBExtractor) Extract(ctx context.Context, filename string) (*types.Document, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}
	book := rc.Rootfiles[0]

	doc := &types.Document{
		Title:  strings.TrimSpace(book.Title),
		Author: strings.TrimSpace(book.Creator),
	}

	spine := make(map[string]int)
	for _, ref := range book.Spine.Itemrefs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ref.Item == nil {
			continue
		}
		text, err := readSpineItem(ref.Item)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ref.Item.HREF, err)
		}
		idx := len(doc.Sections)
		doc.Sections = append(doc.Sections, text)
		if _, ok := spine[ref.Item.HREF]; !ok {
			spine[ref.Item.HREF] = idx
		}
	}

	outline, err := readOutline(filename, book, spine)
	switch {
	case errors.Is(err, errNoNCX):
		doc.OutlineStatus = structure.ReasonOutlineMissing
	case err != nil:
		doc.OutlineStatus = structure.ReasonOutlineInvalid
	case len(outline) == 0:
		doc.OutlineStatus = structure.ReasonOutlineMissing
	default:
		doc.Outline = outline
	}
	return doc, nil
}

func readSpineItem(item *epub.Item) (string, error) {
	r, err := item.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return htmlToText(string(data))
}

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

func readOutline(filename string, book *epub.Rootfile, spine map[string]int) ([]types.OutlineEntry, error) {
	data, err := findAndReadNCX(filename, book)
	if err != nil {
		return nil, err
	}
	return parseNCX(data, spine)
}

// parseNCX maps nav points to spine sections. Points whose target is not
// in the spine are dropped and their children lifted one level.
func parseNCX(data []byte, spine map[string]int) ([]types.OutlineEntry, error) {
	var toc ncx
	if err := xml.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	return navEntries(toc.NavMap.NavPoints, spine), nil
}

func navEntries(points []navPoint, spine map[string]int) []types.OutlineEntry {
	var out []types.OutlineEntry
	for _, np := range points {
		children := navEntries(np.Children, spine)
		idx, ok := spineIndex(np.Content.Src, spine)
		title := strings.Join(strings.Fields(np.Label.Text), " ")
		if !ok || title == "" {
			out = append(out, children...)
			continue
		}
		out = append(out, types.OutlineEntry{Title: title, Section: idx, Children: children})
	}
	return out
}

func spineIndex(src string, spine map[string]int) (int, bool) {
	href := src
	if i := strings.Index(href, "#"); i >= 0 {
		href = href[:i]
	}
	if idx, ok := spine[href]; ok {
		return idx, true
	}
	base := path.Base(href)
	for h, idx := range spine {
		if path.Base(h) == base {
			return idx, true
		}
	}
	return 0, false
}

func findAndReadNCX(filename string, book *epub.Rootfile) ([]byte, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range book.Manifest.Items {
		if item.MediaType == ncxMediaType {
			ncxPath = path.Join(path.Dir(book.FullPath), item.HREF)
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}
	if ncxPath == "" {
		return nil, errNoNCX
	}

	for _, f := range zr.File {
		if f.Name == ncxPath || path.Base(f.Name) == path.Base(ncxPath) {
			r, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return io.ReadAll(r)
		}
	}
	return nil, fmt.Errorf("NCX file %s not found in archive", ncxPath)
}
