package pipeline

import (
	"context"
	"fmt"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// Inspection is the in-memory result of the text stages. Nothing is
// written to disk.
type Inspection struct {
	Book          types.BookMeta               `json:"book"`
	Chapters      []types.Chapter              `json:"chapters"`
	Structure     *artifacts.StructureArtifact `json:"structure"`
	Chunks        *artifacts.ChunksArtifact    `json:"chunks,omitempty"`
	DropCapMerges int                          `json:"drop_cap_merges_count"`
}

// Inspect extracts, cleans, and structures the source, and plans chunks
// when withChunks is set.
func Inspect(ctx context.Context, f *Factory, settings types.RunSettings, withChunks bool) (*Inspection, error) {
	doc, err := f.Extractor.Extract(ctx, settings.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", settings.SourcePath, err)
	}

	cleaned, merges := cleanDocument(f.Cleaner, doc)
	ins := &Inspection{
		Book: types.BookMeta{
			SourcePath: settings.SourcePath,
			Title:      doc.Title,
			Author:     doc.Author,
			Language:   settings.Language,
		},
		DropCapMerges: merges,
	}
	st, fallback, err := buildStructure(f, cleaned)
	if err != nil {
		return nil, err
	}
	ins.Structure = st
	ins.Chapters = types.Chapters(st.Units)

	if withChunks {
		ins.Chunks, err = planChunks(f, st, fallback, settings.ChapterSelection)
		if err != nil {
			return nil, err
		}
	}
	return ins, nil
}
