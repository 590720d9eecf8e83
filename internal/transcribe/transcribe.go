// Package transcribe implements optional audio-attachment transcription
// for the Pipeline Controller's attachment pre-classification step
// (spec.md §4.11 step 2), using a local whisper.cpp model so voice
// messages never leave the process.
package transcribe

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Transcriber converts WAV audio bytes into text. Nil-able: when no model
// is configured the pipeline controller skips audio transcription and
// leaves the message content unchanged.
type Transcriber struct {
	model whisper.Model
}

// New loads the whisper.cpp model at modelPath. Callers should treat a
// non-nil error as "voice transcription unavailable" rather than a fatal
// startup failure, since it is an optional capability.
func New(modelPath string) (*Transcriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load model: %w", err)
	}
	return &Transcriber{model: model}, nil
}

func (t *Transcriber) Close() error {
	if t == nil || t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe decodes a 16kHz mono WAV payload and returns its concatenated
// segment text.
func (t *Transcriber) Transcribe(wav []byte) (string, error) {
	samples, err := decodeWAV(wav)
	if err != nil {
		return "", fmt.Errorf("transcribe: decode wav: %w", err)
	}

	ctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: new context: %w", err)
	}
	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var text string
	for {
		segment, err := ctx.NextSegment()
		if err != nil {
			break
		}
		text += segment.Text
	}
	return text, nil
}

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// decodeWAV converts 16-bit integer PCM or 32-bit float WAV bytes into
// whisper's expected mono float32 samples, downmixing stereo input by
// channel averaging.
func decodeWAV(data []byte) ([]float32, error) {
	r := newByteReader(data)
	var header wavHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("not a wav file")
	}

	audio := make([]byte, header.Subchunk2Size)
	if _, err := io.ReadFull(r, audio); err != nil {
		return nil, fmt.Errorf("read audio data: %w", err)
	}

	var samples []float32
	switch header.BitsPerSample {
	case 16:
		for i := 0; i+1 < len(audio); i += 2 {
			sample := int16(binary.LittleEndian.Uint16(audio[i : i+2]))
			samples = append(samples, float32(sample)/32768.0)
		}
	case 32:
		for i := 0; i+3 < len(audio); i += 4 {
			bits := binary.LittleEndian.Uint32(audio[i : i+4])
			samples = append(samples, *(*float32)(unsafe.Pointer(&bits)))
		}
	default:
		return nil, fmt.Errorf("unsupported bits per sample: %d", header.BitsPerSample)
	}

	if header.NumChannels == 2 {
		mono := make([]float32, len(samples)/2)
		for i := range mono {
			mono[i] = (samples[i*2] + samples[i*2+1]) / 2.0
		}
		samples = mono
	}
	return samples, nil
}

type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
