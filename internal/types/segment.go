package types

import "strconv"

// BoundaryStrategy records how the trailing edge of a segment was chosen.
type BoundaryStrategy string

const (
	// BoundaryParagraph means the segment ends on a paragraph break.
	BoundaryParagraph BoundaryStrategy = "paragraph_preferred"
	// BoundarySentence means the segment ends after a sentence terminator.
	BoundarySentence BoundaryStrategy = "sentence_complete"
	// BoundaryForced means no sentence boundary was found and the text was hard cut.
	BoundaryForced BoundaryStrategy = "forced_split_no_sentence_boundary"
)

// PlannedSegment is a narration-sized piece of one chapter.
type PlannedSegment struct {
	ChapterIndex       int
	PartIndex          int
	Title              string
	Text               string
	SourceOrderIndices []int
	CharCount          int
	CharStart          int
	CharEnd            int
	BoundaryStrategy   BoundaryStrategy
}

// Chunk is the persisted form of a planned segment consumed by downstream stages.
type Chunk struct {
	ChapterIndex       int              `json:"chapter_index" jsonschema:"required,minimum=1"`
	ChunkIndex         int              `json:"chunk_index" jsonschema:"required,minimum=0"`
	Text               string           `json:"text" jsonschema:"required"`
	CharStart          int              `json:"char_start" jsonschema:"required,minimum=0"`
	CharEnd            int              `json:"char_end" jsonschema:"required,minimum=0"`
	PartIndex          int              `json:"part_index" jsonschema:"required,minimum=1"`
	PartTitle          string           `json:"part_title" jsonschema:"required"`
	PartID             string           `json:"part_id" jsonschema:"required"`
	SourceOrderIndices []int            `json:"source_order_indices" jsonschema:"required"`
	BoundaryStrategy   BoundaryStrategy `json:"boundary_strategy" jsonschema:"required,enum=paragraph_preferred,enum=sentence_complete,enum=forced_split_no_sentence_boundary"`
}

// Translation is a translated chunk.
type Translation struct {
	Chunk          Chunk   `json:"chunk" jsonschema:"required"`
	TranslatedText string  `json:"translated_text" jsonschema:"required"`
	Provider       string  `json:"provider" jsonschema:"required"`
	Model          string  `json:"model,omitempty"`
	CostUSD        float64 `json:"cost_usd"`
}

// Rewrite is a translation rewritten for spoken delivery.
type Rewrite struct {
	Translation   Translation `json:"translation" jsonschema:"required"`
	RewrittenText string      `json:"rewritten_text" jsonschema:"required"`
	Provider      string      `json:"provider" jsonschema:"required"`
	Model         string      `json:"model,omitempty"`
	CostUSD       float64     `json:"cost_usd"`
}

// Chunk returns the chunk the rewrite was derived from.
func (r Rewrite) Chunk() Chunk {
	return r.Translation.Chunk
}

// AudioPart is one synthesized audio file for a chunk.
type AudioPart struct {
	ChapterIndex    int     `json:"chapter_index" jsonschema:"required,minimum=1"`
	ChunkIndex      int     `json:"chunk_index" jsonschema:"required,minimum=0"`
	PartIndex       int     `json:"part_index" jsonschema:"required,minimum=1"`
	PartTitle       string  `json:"part_title" jsonschema:"required"`
	PartID          string  `json:"part_id" jsonschema:"required"`
	Path            string  `json:"path" jsonschema:"required"`
	DurationSeconds float64 `json:"duration_seconds"`
	Provider        string  `json:"provider" jsonschema:"required"`
	Voice           string  `json:"voice,omitempty"`
	CostUSD         float64 `json:"cost_usd"`
}

// Signature returns the cross-stage identity of a chunk: "chapter:chunk:part_id".
func Signature(chapterIndex, chunkIndex int, partID string) string {
	if partID == "" {
		partID = "-"
	}
	return strconv.Itoa(chapterIndex) + ":" + strconv.Itoa(chunkIndex) + ":" + partID
}

// Signature returns the chunk's cross-stage identity.
func (c Chunk) Signature() string {
	return Signature(c.ChapterIndex, c.ChunkIndex, c.PartID)
}

// Signature returns the audio part's cross-stage identity.
func (a AudioPart) Signature() string {
	return Signature(a.ChapterIndex, a.ChunkIndex, a.PartID)
}
