package pipeline

import (
	"context"

	"github.com/jackzampolin/bookvoice/internal/audio"
	"github.com/jackzampolin/bookvoice/internal/providers"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// Extractor reads a source file into a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (*types.Document, error)
}

// Translator translates one chunk.
type Translator interface {
	Translate(ctx context.Context, chunk types.Chunk) (types.Translation, error)
}

// Rewriter adapts a translation for spoken delivery.
type Rewriter interface {
	Rewrite(ctx context.Context, tr types.Translation) (types.Rewrite, error)
}

// Synthesizer turns narration text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, chunk types.Chunk, text string) (*providers.TTSResult, error)
}

// Encoder merges and packages audio files.
type Encoder interface {
	Merge(ctx context.Context, inputs []string, out string) error
	Package(ctx context.Context, inputs []string, out string, tags audio.Tags) error
	Duration(ctx context.Context, path string) (float64, error)
	Name() string
}
