package record

import "os"

// EncodeWAV wraps 16-bit PCM samples in a minimal RIFF/WAVE container.
func EncodeWAV(samples []int16, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	dataSize := len(samples) * 2
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	wav := make([]byte, 44+dataSize)

	// RIFF header
	copy(wav[0:4], "RIFF")
	putLE32(wav[4:8], uint32(36+dataSize))
	copy(wav[8:12], "WAVE")

	// fmt subchunk
	copy(wav[12:16], "fmt ")
	putLE32(wav[16:20], 16) // Subchunk1Size for PCM
	putLE16(wav[20:22], 1)  // AudioFormat (1 = PCM)
	putLE16(wav[22:24], uint16(channels))
	putLE32(wav[24:28], uint32(sampleRate))
	putLE32(wav[28:32], uint32(byteRate))
	putLE16(wav[32:34], uint16(blockAlign))
	putLE16(wav[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(wav[36:40], "data")
	putLE32(wav[40:44], uint32(dataSize))
	for i, sample := range samples {
		putLE16(wav[44+i*2:], uint16(sample))
	}

	return wav
}

// WriteWAV persists samples to path as a PCM WAV file, overwriting any
// existing file.
func WriteWAV(path string, samples []int16, sampleRate, channels int) error {
	return os.WriteFile(path, EncodeWAV(samples, sampleRate, channels), 0o644)
}

// putLE16 writes a uint16 in little-endian format.
func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// putLE32 writes a uint32 in little-endian format.
func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
