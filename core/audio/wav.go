package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zaf/g711"
)

const wavHeaderSize = 44

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

// IsWAV reports whether the audio starts with a RIFF/WAVE header.
func IsWAV(audio []byte) bool {
	return len(audio) >= 12 && string(audio[0:4]) == "RIFF" && string(audio[8:12]) == "WAVE"
}

// StripWAVHeader returns the PCM samples of a canonical 16 bit mono WAV file
// together with its encoding. Other layouts are rejected since the playback
// devices are opened for mono linear16.
func StripWAVHeader(audio []byte) ([]byte, EncodingInfo, error) {
	if len(audio) < wavHeaderSize {
		return nil, EncodingInfo{}, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(audio))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(audio), binary.LittleEndian, &header); err != nil {
		return nil, EncodingInfo{}, fmt.Errorf("failed to read WAV header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return nil, EncodingInfo{}, fmt.Errorf("invalid WAV file: missing RIFF header")
	case string(header.Format[:]) != "WAVE":
		return nil, EncodingInfo{}, fmt.Errorf("invalid WAV file: missing WAVE format")
	case string(header.Subchunk2ID[:]) != "data":
		return nil, EncodingInfo{}, fmt.Errorf("invalid WAV file: missing data chunk")
	case header.AudioFormat != 1:
		return nil, EncodingInfo{}, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	case header.BitsPerSample != 16:
		return nil, EncodingInfo{}, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	case header.NumChannels != 1:
		return nil, EncodingInfo{}, fmt.Errorf("unsupported channel count: %d (only mono is supported)", header.NumChannels)
	}

	samples := audio[wavHeaderSize:]
	if size := int(header.Subchunk2Size); size < len(samples) {
		samples = samples[:size]
	}

	return samples, EncodingInfo{SampleRate: int(header.SampleRate), Format: EncodingLinear16}, nil
}

// PCM returns the linear16 samples carried by a decoded payload. WAV files
// have their header removed, anything else is read in the fallback encoding
// and G.711 samples are expanded to linear16.
func PCM(audio []byte, fallback EncodingInfo) ([]byte, EncodingInfo, error) {
	if IsWAV(audio) {
		return StripWAVHeader(audio)
	}

	switch fallback.Format {
	case EncodingLinear16:
		if len(audio)%2 != 0 {
			return nil, EncodingInfo{}, fmt.Errorf("linear16 audio must have an even length, got %d bytes", len(audio))
		}
		return audio, fallback, nil
	case EncodingMulaw:
		return g711.DecodeUlaw(audio), EncodingInfo{SampleRate: fallback.SampleRate, Format: EncodingLinear16}, nil
	case EncodingALaw:
		return g711.DecodeAlaw(audio), EncodingInfo{SampleRate: fallback.SampleRate, Format: EncodingLinear16}, nil
	}
	return nil, EncodingInfo{}, fmt.Errorf("unsupported audio encoding %q", fallback.Format)
}
