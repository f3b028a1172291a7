// Package audio merges synthesized parts into book and chapter files.
package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tags is container metadata written into packaged chapter files.
type Tags struct {
	Title      string
	Album      string
	Track      int
	TrackTotal int
	Comment    string
}

// Encoder merges ordered audio files.
type Encoder interface {
	// Merge concatenates inputs into out without changing the codec.
	Merge(ctx context.Context, inputs []string, out string) error
	// Package encodes inputs into out, choosing the codec from out's extension.
	Package(ctx context.Context, inputs []string, out string, tags Tags) error
	// Duration returns the length of an audio file in seconds.
	Duration(ctx context.Context, path string) (float64, error)
	// Name identifies the encoder in logs and manifests.
	Name() string
}

// Encoder kinds accepted by New.
const (
	KindAuto   = "auto"
	KindFFmpeg = "ffmpeg"
	KindNative = "native"
)

// New returns the encoder for kind. "auto" prefers ffmpeg and falls back
// to the native WAV encoder when ffmpeg is not installed.
func New(kind, ffmpegPath, ffprobePath string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindAuto:
		ff := NewFFmpeg(ffmpegPath, ffprobePath)
		if ff.Available() == nil {
			return ff, nil
		}
		return NewNative(), nil
	case KindFFmpeg:
		ff := NewFFmpeg(ffmpegPath, ffprobePath)
		if err := ff.Available(); err != nil {
			return nil, err
		}
		return ff, nil
	case KindNative:
		return NewNative(), nil
	default:
		return nil, fmt.Errorf("unknown audio encoder %q (want auto, ffmpeg, or native)", kind)
	}
}

func lookPath(bin string) error {
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", bin, err)
	}
	return nil
}
