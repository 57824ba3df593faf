package audio

import "encoding/binary"

// PCMToWAV wraps raw PCM audio data with a WAV header, for saving decoded
// session audio or synthesized speech to a file.
func PCMToWAV(pcmData []byte, cfg Config) []byte {
	dataLen := len(pcmData)
	byteRate := cfg.BytesPerSecond()
	blockAlign := cfg.Channels * cfg.BitsPerSample / 8

	// WAV header is 44 bytes
	header := make([]byte, 44)

	// RIFF chunk descriptor
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")

	// fmt sub-chunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM sub-chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], uint16(cfg.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(cfg.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(cfg.BitsPerSample))

	// data sub-chunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, pcmData...)
}
