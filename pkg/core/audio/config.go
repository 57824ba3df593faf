// Package audio holds the PCM format contract shared by capture, the live
// session, and playback: 16-bit signed little-endian samples, mono 16 kHz on
// the way out, mono 24 kHz on the way back.
package audio

import "time"

// Config specifies audio format parameters.
type Config struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100, 48000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// CaptureConfig is the fixed microphone capture format.
func CaptureConfig() Config {
	return Config{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// PlaybackConfig is the fixed format of audio received from the service.
func PlaybackConfig() Config {
	return Config{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
}

// BytesPerSecond returns the audio byte rate.
func (c Config) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// Duration returns the playback duration of the given byte count.
func (c Config) Duration(bytes int) time.Duration {
	bps := c.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(bps)
}

// BytesForDuration returns the byte count for the given duration.
func (c Config) BytesForDuration(d time.Duration) int {
	return int(int64(c.BytesPerSecond()) * int64(d) / int64(time.Second))
}
