package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSilenceRoundTrip(t *testing.T) {
	b := Silence(1500, 24000)
	w, err := ParseWAV(b)
	if err != nil {
		t.Fatalf("ParseWAV() error = %v", err)
	}
	if w.Format.SampleRate != 24000 || w.Format.Channels != 1 {
		t.Errorf("format = %+v", w.Format)
	}
	if got := w.Duration(); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("Duration() = %v, want 1.5", got)
	}
}

func TestParseWAVRejects(t *testing.T) {
	if _, err := ParseWAV([]byte("ID3 not a wav")); !errors.Is(err, ErrNotWAV) {
		t.Errorf("ParseWAV(mp3) error = %v, want ErrNotWAV", err)
	}
	b := Silence(10, 8000)
	if _, err := ParseWAV(b[:20]); err == nil {
		t.Error("ParseWAV(truncated) = nil error")
	}
}

func TestNativeMerge(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for i, ms := range []int{500, 250, 250} {
		p := filepath.Join(dir, "part"+string(rune('a'+i))+".wav")
		if err := os.WriteFile(p, Silence(ms, 16000), 0o644); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, p)
	}

	n := NewNative()
	out := filepath.Join(dir, "out", "merged.wav")
	if err := n.Merge(context.Background(), inputs, out); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	d, err := n.Duration(context.Background(), out)
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if math.Abs(d-1.0) > 1e-9 {
		t.Errorf("Duration() = %v, want 1.0", d)
	}

	if err := n.Merge(context.Background(), inputs, filepath.Join(dir, "merged.mp3")); err == nil {
		t.Error("Merge() to mp3 should fail")
	}
}

func TestNativeMergeFormatMismatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	if err := os.WriteFile(a, Silence(100, 16000), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, Silence(100, 24000), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewNative().Merge(context.Background(), []string{a, b}, filepath.Join(dir, "m.wav")); err == nil {
		t.Error("Merge() of mixed sample rates should fail")
	}
}

func TestNewEncoder(t *testing.T) {
	enc, err := New(KindNative, "", "")
	if err != nil || enc.Name() != KindNative {
		t.Errorf("New(native) = %v, %v", enc, err)
	}
	if _, err := New("lame", "", ""); err == nil {
		t.Error("New(lame) should fail")
	}
	enc, err = New(KindAuto, "/nonexistent/ffmpeg", "/nonexistent/ffprobe")
	if err != nil || enc.Name() != KindNative {
		t.Errorf("New(auto) without ffmpeg = %v, %v; want native", enc, err)
	}
}

func TestMetadataArgs(t *testing.T) {
	args := metadataArgs(Tags{Title: "Intro", Album: " ", Track: 2, TrackTotal: 5})
	want := []string{"-metadata", "title=Intro", "-metadata", "track=2/5"}
	if len(args) != len(want) {
		t.Fatalf("metadataArgs() = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}
