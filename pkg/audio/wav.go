package audio

import (
	"bytes"
	"encoding/binary"
)

// StreamSampleRate is the fixed sample rate the TTS pipeline renders at:
// 16-bit mono, 24 kHz.
const StreamSampleRate = 24000

func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm))) // ChunkSize
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))           // Subchunk1Size
	binary.Write(buf, binary.LittleEndian, uint16(1))            // AudioFormat (PCM)
	binary.Write(buf, binary.LittleEndian, uint16(1))            // NumChannels (mono)
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))   // SampleRate
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // ByteRate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // BlockAlign
	binary.Write(buf, binary.LittleEndian, uint16(16))           // BitsPerSample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm))) // Subchunk2Size
	buf.Write(pcm)

	return buf.Bytes()
}
