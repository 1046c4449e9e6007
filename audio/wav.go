package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wavHeaderSize    = 44
	wavBitsPerSample = 16
	wavNumChannels   = 1
)

// EncodeWAV converts float32 PCM samples into a 16-bit linear PCM WAV
// container. Samples are clamped to [-1, 1] and scaled to the int16 range;
// the header is the standard 44-byte RIFF layout (mono, 16-bit,
// little-endian) that the transcription and diarization backends accept.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	byteRate := sampleRate * wavNumChannels * wavBitsPerSample / 8
	blockAlign := wavNumChannels * wavBitsPerSample / 8

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(wavNumChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(wavBitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))

	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.Write(buf, binary.LittleEndian, int16(s*math.MaxInt16))
	}

	return buf.Bytes()
}

// DecodeWAV parses a 16-bit linear PCM mono WAV payload back into float32
// samples and its sample rate. Only the container the pipeline itself
// produces is supported; anything else (stereo, non-PCM, other bit depths)
// is rejected.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav payload too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE payload")
	}

	format := binary.LittleEndian.Uint16(data[20:22])
	channels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	bits := binary.LittleEndian.Uint16(data[34:36])

	if format != 1 {
		return nil, 0, fmt.Errorf("unsupported wav format %d (want PCM)", format)
	}
	if channels != wavNumChannels {
		return nil, 0, fmt.Errorf("unsupported channel count %d (want mono)", channels)
	}
	if bits != wavBitsPerSample {
		return nil, 0, fmt.Errorf("unsupported bit depth %d (want 16)", bits)
	}

	// Locate the data chunk; some writers insert extension chunks between
	// fmt and data.
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		if id == "data" {
			start := offset + 8
			end := start + size
			if end > len(data) {
				end = len(data)
			}
			pcm := data[start:end]
			samples := make([]float32, len(pcm)/2)
			for i := range samples {
				s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
				samples[i] = float32(s) / math.MaxInt16
			}
			return samples, int(sampleRate), nil
		}
		offset += 8 + size
	}

	return nil, 0, fmt.Errorf("wav payload has no data chunk")
}
