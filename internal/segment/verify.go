package segment

import (
	"fmt"

	"github.com/jackzampolin/bookvoice/internal/types"
)

// Verify checks chapter isolation, the ceiling, and part numbering.
// Any breach is a PlannerInvariantViolation.
func Verify(plan *Plan, units []types.StructuralUnit) error {
	chapterOf := make(map[int]int, len(units))
	for _, u := range units {
		chapterOf[u.OrderIndex] = u.ChapterIndex
	}

	violation := func(format string, args ...any) error {
		return types.NewStageError(types.KindPlannerInvariant, "chunk", fmt.Sprintf(format, args...))
	}

	lastChapter := 0
	lastPart := 0
	for i, seg := range plan.Segments {
		if seg.CharCount > plan.CeilingChars {
			return violation("segment %d has %d chars, ceiling is %d", i, seg.CharCount, plan.CeilingChars)
		}
		if seg.CharEnd-seg.CharStart > plan.CeilingChars {
			return violation("segment %d spans %d chars, ceiling is %d", i, seg.CharEnd-seg.CharStart, plan.CeilingChars)
		}
		if seg.ChapterIndex < lastChapter {
			return violation("segment %d returns to chapter %d after chapter %d", i, seg.ChapterIndex, lastChapter)
		}
		if seg.ChapterIndex != lastChapter {
			lastChapter = seg.ChapterIndex
			lastPart = 0
		}
		if seg.PartIndex != lastPart+1 {
			return violation("segment %d in chapter %d has part %d, expected %d", i, seg.ChapterIndex, seg.PartIndex, lastPart+1)
		}
		lastPart = seg.PartIndex

		if len(seg.SourceOrderIndices) == 0 {
			return violation("segment %d has no source units", i)
		}
		for _, idx := range seg.SourceOrderIndices {
			ch, ok := chapterOf[idx]
			if !ok {
				return violation("segment %d references unknown unit %d", i, idx)
			}
			if ch != seg.ChapterIndex {
				return violation("segment %d in chapter %d contains unit %d from chapter %d", i, seg.ChapterIndex, idx, ch)
			}
		}
	}
	return nil
}
