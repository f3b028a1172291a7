package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/internal/pipeline"
	"github.com/jackzampolin/bookvoice/internal/resume"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// textView pairs a value with its text rendering. Structured formats
// encode the value itself.
type textView struct {
	value any
	text  func() string
}

func (v textView) Text() string                 { return v.text() }
func (v textView) MarshalJSON() ([]byte, error) { return json.Marshal(v.value) }
func (v textView) MarshalYAML() (any, error)    { return v.value, nil }

func orDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func renderResult(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString(api.Title("Run " + res.RunID))
	b.WriteByte('\n')
	rows := [][2]string{
		{"directory", res.RunDir},
		{"attempt", res.AttemptID},
		{"reused", orDash(res.Reused)},
		{"executed", orDash(res.Executed)},
	}
	if res.Duration > 0 {
		rows = append(rows, [2]string{"duration", res.Duration.Round(time.Millisecond).String()})
	}
	if m := res.Manifest; m != nil {
		status := api.Warn("incomplete")
		if m.Completed() {
			status = api.OK("completed")
		}
		rows = append(rows,
			[2]string{"book", bookLabel(m.Book)},
			[2]string{"status", status},
			[2]string{"cost", fmt.Sprintf("$%.4f (llm $%.4f, tts $%.4f)", m.Costs.TotalUSD, m.Costs.LLMUSD, m.Costs.TTSUSD)},
		)
		if m.Artifacts.MergedAudio != "" {
			rows = append(rows, [2]string{"audio", filepath.Join(res.RunDir, m.Artifacts.MergedAudio)})
		}
	}
	b.WriteString(api.KV(rows))
	if res.Resume != nil && !res.Resume.Recoverable() {
		b.WriteString("\n\n")
		b.WriteString(renderReport(res.Resume))
	}
	return b.String()
}

func bookLabel(b types.BookMeta) string {
	if b.Author == "" {
		return b.Title
	}
	return b.Title + " by " + b.Author
}

func renderReport(r *resume.Report) string {
	var b strings.Builder
	b.WriteString(api.Title("Resume validation"))
	b.WriteByte('\n')

	rows := make([][]string, 0, len(r.Classes))
	for _, c := range r.Classes {
		status := string(c.Status)
		switch c.Status {
		case resume.StatusConsistent:
			status = api.OK(status)
		case resume.StatusStale:
			status = api.Error(status)
		}
		rows = append(rows, []string{string(c.Stage), status, c.Detail})
	}
	b.WriteString(api.Table([]string{"STAGE", "STATUS", "DETAIL"}, rows))
	b.WriteString("\n\n")

	verdict := api.OK(string(r.Classification))
	if !r.Recoverable() {
		verdict = api.Error(string(r.Classification))
	}
	b.WriteString(api.KV([][2]string{
		{"classification", verdict},
		{"next stage", r.NextStage},
	}))

	if !r.Recoverable() {
		var box strings.Builder
		for _, d := range r.Diagnostics {
			box.WriteString("- " + d + "\n")
		}
		if len(r.Paths) > 0 {
			box.WriteString("\nPaths:\n")
			for _, p := range r.Paths {
				box.WriteString("  " + p + "\n")
			}
		}
		box.WriteString("\n" + r.Remediation)
		b.WriteString("\n\n")
		b.WriteString(api.Box(box.String()))
	}
	return b.String()
}

func renderChapters(ins *pipeline.Inspection) string {
	var b strings.Builder
	b.WriteString(api.Title(bookLabel(ins.Book)))
	b.WriteByte('\n')
	b.WriteString(api.KV(structureRows(ins)))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(ins.Chapters))
	for _, c := range ins.Chapters {
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			c.Title,
			strconv.Itoa(c.UnitCount),
			strconv.Itoa(c.CharCount),
		})
	}
	b.WriteString(api.Table([]string{"#", "TITLE", "UNITS", "CHARS"}, rows))
	return b.String()
}

func structureRows(ins *pipeline.Inspection) [][2]string {
	md := ins.Structure.Metadata
	rows := [][2]string{
		{"structure", md.Source},
		{"chapters", strconv.Itoa(md.ChapterCount)},
	}
	if md.FallbackReason != "" {
		rows = append(rows, [2]string{"fallback", md.FallbackReason})
	}
	if md.ChunkerFallback {
		rows = append(rows, [2]string{"chunker", api.Warn("no structure found, whole text chunked")})
	}
	if ins.DropCapMerges > 0 {
		rows = append(rows, [2]string{"drop caps", strconv.Itoa(ins.DropCapMerges)})
	}
	return rows
}

func renderPlan(ins *pipeline.Inspection) string {
	var b strings.Builder
	b.WriteString(api.Title(bookLabel(ins.Book)))
	b.WriteByte('\n')

	rows := structureRows(ins)
	if ins.Chunks != nil {
		md := ins.Chunks.Metadata
		rows = append(rows,
			[2]string{"scope", md.ChapterScope.Label},
			[2]string{"strategy", md.Planner.Strategy},
			[2]string{"segments", strconv.Itoa(md.Planner.SegmentCount)},
			[2]string{"budget", fmt.Sprintf("%d (ceiling %d)", md.Planner.BudgetChars, md.Planner.BudgetCeilingChars)},
		)
		if md.Planner.ForcedSplitCount > 0 {
			rows = append(rows, [2]string{"forced splits", api.Warn(strconv.Itoa(md.Planner.ForcedSplitCount))})
		}
	}
	b.WriteString(api.KV(rows))

	if ins.Chunks != nil {
		b.WriteString("\n\n")
		chunks := make([][]string, 0, len(ins.Chunks.Chunks))
		for _, c := range ins.Chunks.Chunks {
			chunks = append(chunks, []string{
				c.PartID,
				strconv.Itoa(len([]rune(c.Text))),
				string(c.BoundaryStrategy),
			})
		}
		b.WriteString(api.Table([]string{"PART", "CHARS", "BOUNDARY"}, chunks))
	}
	return b.String()
}
