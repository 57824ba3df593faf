package audio

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Chunk is an immutable buffer of raw 16-bit PCM samples plus its format.
// Produced by capture on the input side, or decoded from the remote stream on
// the output side.
type Chunk struct {
	PCM    []byte
	Config Config
}

// NewChunk copies pcm into a Chunk. The trailing odd byte of a misaligned
// buffer is dropped so the chunk always holds whole samples.
func NewChunk(pcm []byte, cfg Config) Chunk {
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	return Chunk{PCM: append([]byte(nil), pcm...), Config: cfg}
}

// Duration returns how long the chunk plays for.
func (c Chunk) Duration() time.Duration {
	return c.Config.Duration(len(c.PCM))
}

// Samples returns the number of PCM samples per channel.
func (c Chunk) Samples() int {
	ch := c.Config.Channels
	if ch <= 0 {
		ch = 1
	}
	return len(c.PCM) / 2 / ch
}

// EncodedFrame is the transport-ready representation of a Chunk: a base64
// payload plus its declared mime descriptor. One-to-one with the Chunk it was
// encoded from.
type EncodedFrame struct {
	Data     string // base64 standard encoding
	MIMEType string // e.g. "audio/pcm;rate=16000"
}

// MIMEFor returns the realtime-input mime descriptor for a sample rate.
func MIMEFor(sampleRate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
}

// EncodeFrame converts a chunk to its wire form: downmixed to mono, s16le,
// base64 encoded.
func EncodeFrame(c Chunk) EncodedFrame {
	pcm := c.PCM
	if c.Config.Channels > 1 {
		pcm = DownmixToMono(pcm, c.Config.Channels)
	}
	return EncodedFrame{
		Data:     base64.StdEncoding.EncodeToString(pcm),
		MIMEType: MIMEFor(c.Config.SampleRate),
	}
}

// DecodeFrame decodes a received base64 payload into a playable chunk at the
// given output format. Received audio is trusted to be s16le already.
func DecodeFrame(f EncodedFrame, out Config) (Chunk, error) {
	raw, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return Chunk{}, fmt.Errorf("decode audio payload: %w", err)
	}
	return NewChunk(raw, out), nil
}

// SampleRateFromMIME parses the rate out of an "audio/pcm;rate=N" descriptor.
// Returns 0 when the descriptor carries no rate.
func SampleRateFromMIME(mime string) int {
	for _, part := range strings.Split(mime, ";") {
		part = strings.TrimSpace(part)
		if rate, ok := strings.CutPrefix(part, "rate="); ok {
			var n int
			if _, err := fmt.Sscanf(rate, "%d", &n); err == nil {
				return n
			}
		}
	}
	return 0
}

// DownmixToMono averages interleaved channels into a single mono stream.
func DownmixToMono(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frames := len(pcm) / 2 / channels
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sum += int(int16(pcm[off]) | int16(pcm[off+1])<<8)
		}
		s := int16(sum / channels)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// PCM16FromFloat32 quantizes normalized float samples to 16-bit signed
// little-endian PCM, clamping to the valid range.
func PCM16FromFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		s := int16(v * 32767.0)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
