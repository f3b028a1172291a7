package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV is returned for data without a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// WAVFormat is the fmt chunk of a PCM WAV file.
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAV is a parsed PCM WAV file.
type WAV struct {
	Format WAVFormat
	Data   []byte
}

// Duration returns the audio length in seconds.
func (w *WAV) Duration() float64 {
	if w.Format.ByteRate == 0 {
		return 0
	}
	return float64(len(w.Data)) / float64(w.Format.ByteRate)
}

// ParseWAV reads the fmt and data chunks; other chunks are skipped.
func ParseWAV(b []byte) (*WAV, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}
	w := &WAV{}
	haveFmt := false
	for off := 12; off+8 <= len(b); {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		end := body + size
		if end > len(b) {
			// Streaming encoders write a placeholder size for the data chunk.
			if id != "data" {
				return nil, fmt.Errorf("wav chunk %q overruns file", id)
			}
			end = len(b)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("wav fmt chunk too short: %d", size)
			}
			if err := binary.Read(bytes.NewReader(b[body:body+16]), binary.LittleEndian, &w.Format); err != nil {
				return nil, err
			}
			haveFmt = true
		case "data":
			w.Data = b[body:end]
		}
		off = end + size%2
	}
	if !haveFmt {
		return nil, fmt.Errorf("wav has no fmt chunk")
	}
	if w.Data == nil {
		return nil, fmt.Errorf("wav has no data chunk")
	}
	return w, nil
}

// Bytes encodes the WAV with a canonical 44-byte header.
func (w *WAV) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(w.Data))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(w.Data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, w.Format)
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(w.Data)))
	buf.Write(w.Data)
	return buf.Bytes()
}

// Silence returns 16-bit mono PCM silence of the given length.
func Silence(durationMS int, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	samples := sampleRate * durationMS / 1000
	w := &WAV{
		Format: WAVFormat{
			AudioFormat:   1,
			Channels:      1,
			SampleRate:    uint32(sampleRate),
			ByteRate:      uint32(sampleRate * 2),
			BlockAlign:    2,
			BitsPerSample: 16,
		},
		Data: make([]byte, samples*2),
	}
	return w.Bytes()
}
