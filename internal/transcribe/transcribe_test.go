package transcribe

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildWAV(t *testing.T, sampleRate uint32, channels uint16, samples []int16) []byte {
	t.Helper()
	var buf bytes.Buffer
	dataSize := uint32(len(samples) * 2)
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(channels) * 2,
		BlockAlign:    channels * 2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, header))
	for _, s := range samples {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, s))
	}
	return buf.Bytes()
}

func TestDecodeWAVMonoSixteenBit(t *testing.T) {
	wav := buildWAV(t, 16000, 1, []int16{0, 16384, -16384, 32767})
	samples, err := decodeWAV(wav)
	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.InDelta(t, 0.5, samples[1], 0.001)
	assert.InDelta(t, -0.5, samples[2], 0.001)
}

func TestDecodeWAVStereoDownmixesToMono(t *testing.T) {
	wav := buildWAV(t, 16000, 2, []int16{0, 32767, 16384, 16384})
	samples, err := decodeWAV(wav)
	require.NoError(t, err)
	require.Len(t, samples, 2)
}

func TestDecodeWAVRejectsNonRIFFHeader(t *testing.T) {
	_, err := decodeWAV([]byte("not a wav file at all, just some bytes"))
	assert.Error(t, err)
}
