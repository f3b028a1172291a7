package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Native concatenates PCM WAV files in process. It cannot transcode, so
// every input must share one format and the output must be .wav.
type Native struct{}

// NewNative creates the in-process WAV encoder.
func NewNative() *Native { return &Native{} }

// Name returns "native".
func (n *Native) Name() string { return KindNative }

// Merge joins WAV inputs into out.
func (n *Native) Merge(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if ext := strings.ToLower(filepath.Ext(out)); ext != ".wav" {
		return fmt.Errorf("native encoder only writes wav, got %s", ext)
	}

	var merged *WAV
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", in, err)
		}
		w, err := ParseWAV(b)
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
		if merged == nil {
			merged = &WAV{Format: w.Format, Data: append([]byte(nil), w.Data...)}
			continue
		}
		if w.Format != merged.Format {
			return fmt.Errorf("%s: wav format %+v differs from %+v", in, w.Format, merged.Format)
		}
		merged.Data = append(merged.Data, w.Data...)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, merged.Bytes(), 0o644)
}

// Package merges inputs; tags are not written for WAV output.
func (n *Native) Package(ctx context.Context, inputs []string, out string, _ Tags) error {
	return n.Merge(ctx, inputs, out)
}

// Duration reads the WAV header.
func (n *Native) Duration(_ context.Context, path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	w, err := ParseWAV(b)
	if err != nil {
		return 0, err
	}
	return w.Duration(), nil
}
