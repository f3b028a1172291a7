package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpeg shells out to ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
}

// NewFFmpeg creates an encoder using the given binaries (PATH lookup when empty).
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Name returns "ffmpeg".
func (f *FFmpeg) Name() string { return KindFFmpeg }

// Available checks that ffmpeg and ffprobe can be executed.
func (f *FFmpeg) Available() error {
	if err := lookPath(f.ffmpeg); err != nil {
		return err
	}
	return lookPath(f.ffprobe)
}

// Merge concatenates inputs with the concat demuxer and stream copy.
func (f *FFmpeg) Merge(ctx context.Context, inputs []string, out string) error {
	return f.concat(ctx, inputs, out, []string{"-c", "copy"})
}

// Package re-encodes inputs to out's container with metadata tags.
func (f *FFmpeg) Package(ctx context.Context, inputs []string, out string, tags Tags) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	args := []string{"-vn", "-map_metadata", "-1", "-fflags", "+bitexact", "-ac", "1", "-ar", "24000"}
	switch ext {
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-b:a", "128k", "-id3v2_version", "3")
	case "m4a":
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	case "wav":
		args = append(args, "-c:a", "pcm_s16le")
	default:
		return fmt.Errorf("unsupported package format %q", ext)
	}
	args = append(args, metadataArgs(tags)...)
	return f.concat(ctx, inputs, out, args)
}

func (f *FFmpeg) concat(ctx context.Context, inputs []string, out string, codecArgs []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	listPath := out + ".concat.txt"
	var lines []string
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("file '%s'", strings.ReplaceAll(abs, "'", "'\\''")))
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-f", "concat", "-safe", "0", "-i", listPath}
	args = append(args, codecArgs...)
	args = append(args, out)

	cmd := exec.CommandContext(ctx, f.ffmpeg, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed for %s: %w\nOutput: %s", filepath.Base(out), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Duration probes the container duration in seconds.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return secs, nil
}

func metadataArgs(t Tags) []string {
	var args []string
	add := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			args = append(args, "-metadata", k+"="+v)
		}
	}
	add("title", t.Title)
	add("album", t.Album)
	if t.Track > 0 {
		add("track", fmt.Sprintf("%d/%d", t.Track, t.TrackTotal))
	}
	add("comment", t.Comment)
	return args
}
