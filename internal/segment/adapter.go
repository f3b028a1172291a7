package segment

import (
	"strconv"

	"github.com/jackzampolin/bookvoice/internal/slug"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// ToChunks converts planned segments into chunks. Chunk indexes restart at
// zero in each chapter and equal the part index minus one.
func ToChunks(plan *Plan) []types.Chunk {
	chunks := make([]types.Chunk, 0, len(plan.Segments))
	for _, seg := range plan.Segments {
		indices := make([]int, len(seg.SourceOrderIndices))
		copy(indices, seg.SourceOrderIndices)
		chunks = append(chunks, types.Chunk{
			ChapterIndex:       seg.ChapterIndex,
			ChunkIndex:         seg.PartIndex - 1,
			Text:               seg.Text,
			CharStart:          seg.CharStart,
			CharEnd:            seg.CharEnd,
			PartIndex:          seg.PartIndex,
			PartTitle:          seg.Title,
			PartID:             slug.PartID(seg.ChapterIndex, seg.PartIndex, seg.Title),
			SourceOrderIndices: indices,
			BoundaryStrategy:   seg.BoundaryStrategy,
		})
	}
	return chunks
}

// ChapterPartMap lists part IDs per chapter, keyed by chapter index as a string.
func ChapterPartMap(chunks []types.Chunk) map[string][]string {
	out := make(map[string][]string)
	for _, c := range chunks {
		key := strconv.Itoa(c.ChapterIndex)
		out[key] = append(out[key], c.PartID)
	}
	return out
}

// Metadata returns the planner block persisted with the chunk artifact.
func (p *Plan) Metadata() PlannerMetadata {
	return PlannerMetadata{
		Strategy:                    p.Strategy,
		BudgetChars:                 p.BudgetChars,
		BudgetCeilingChars:          p.CeilingChars,
		SegmentCount:                len(p.Segments),
		ForcedSplitCount:            p.ForcedSplitCount,
		SourceStructureUnitCount:    p.SourceUnitCount,
		SourceStructureOrderIndices: p.SourceOrderIndices,
	}
}

// PlannerMetadata describes how chunks were produced.
type PlannerMetadata struct {
	Strategy                    string `json:"strategy" jsonschema:"required,enum=text_budget_segment_planner,enum=chunker_fallback"`
	BudgetChars                 int    `json:"budget_chars" jsonschema:"required"`
	BudgetCeilingChars          int    `json:"budget_ceiling_chars" jsonschema:"required"`
	SegmentCount                int    `json:"segment_count" jsonschema:"required"`
	ForcedSplitCount            int    `json:"forced_split_count"`
	SourceStructureUnitCount    int    `json:"source_structure_unit_count" jsonschema:"required"`
	SourceStructureOrderIndices []int  `json:"source_structure_order_indices" jsonschema:"required"`
}
