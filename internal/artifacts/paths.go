package artifacts

import (
	"fmt"
	"path"

	"github.com/jackzampolin/bookvoice/internal/slug"
)

// Run-relative artifact locations.
const (
	RawTextPath      = "text/raw.txt"
	CleanTextPath    = "text/clean.txt"
	StructurePath    = "text/structure.json"
	ChunksPath       = "text/chunks.json"
	TranslationsPath = "text/translations.json"
	RewritesPath     = "text/rewrites.json"
	AudioPartsPath   = "audio/parts.json"
	MergedPath       = "audio/merged.json"
	PackagePath      = "audio/package.json"
	ManifestPath     = "run_manifest.json"

	partsDir    = "audio/parts"
	chaptersDir = "audio/chapters"
)

// PartAudioPath returns the run-relative path for a synthesized part.
func PartAudioPath(chapterIndex, partIndex int, title, ext string) string {
	return path.Join(partsDir, slug.Filename(chapterIndex, partIndex, title, ext))
}

// MergedAudioPath returns the run-relative path of the merged book audio.
func MergedAudioPath(ext string) string {
	return "audio/bookvoice_merged." + ext
}

// ChapterAudioPath returns the run-relative path of a packaged chapter file.
// number is the source chapter index or the sequential position, depending
// on the packaging numbering mode.
func ChapterAudioPath(number int, title, ext string) string {
	return path.Join(chaptersDir, fmt.Sprintf("chapter_%03d_%s.%s", number, slug.Title(title), ext))
}
