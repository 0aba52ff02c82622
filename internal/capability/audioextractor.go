package capability

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/tcolgate/mp3"

	"sonar/internal/sonarerr"
)

// FormatAudioExtractor implements AudioExtractor by sniffing the
// container from mime and parsing its own header/frame structure —
// adapted from the scanning logic this codebase's ancestor used when it
// walked a directory tree of files, here operating on an in-memory
// payload instead of a path on disk.
type FormatAudioExtractor struct{}

func NewFormatAudioExtractor() *FormatAudioExtractor { return &FormatAudioExtractor{} }

func (e *FormatAudioExtractor) ExtractProperties(mime string, data []byte) (AudioProperties, error) {
	switch mime {
	case "audio/mpeg", "audio/mp3":
		return extractMP3Properties(data), nil
	case "audio/flac", "audio/x-flac":
		return extractFLACProperties(data), nil
	case "audio/ogg", "audio/vorbis":
		return extractOGGProperties(data), nil
	case "audio/wav", "audio/x-wav", "audio/wave":
		return extractWAVProperties(data), nil
	default:
		return AudioProperties{}, sonarerr.UnsupportedMime(mime)
	}
}

// extractMP3Properties decodes frames with tcolgate/mp3 to sum exact frame
// durations, then derives an average bitrate from the payload size over
// that duration — avoids hand-rolling frame-header bit math twice.
func extractMP3Properties(data []byte) AudioProperties {
	dec := mp3.NewDecoder(bytes.NewReader(data))
	var total time.Duration
	var frame mp3.Frame
	var frames int
	skipped := 0
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			break
		}
		total += frame.Duration()
		frames++
	}

	if total <= 0 {
		return fallbackProperties(len(data), 128)
	}
	bitrate := int(float64(len(data)*8) / total.Seconds() / 1000)
	channels := 2
	return AudioProperties{
		Bitrate:    bitrate,
		DurationMs: int(total.Milliseconds()),
		Channels:   channels,
		SampleFreq: 44100,
	}
}

// extractFLACProperties reads the STREAMINFO metadata block directly,
// ported from the directory scanner's byte-level FLAC parser.
func extractFLACProperties(data []byte) AudioProperties {
	if len(data) < 4 || string(data[0:4]) != "fLaC" {
		return fallbackProperties(len(data), 1000)
	}
	pos := 4
	for pos+4 <= len(data) {
		blockHeader := data[pos : pos+4]
		blockType := blockHeader[0] & 0x7F
		blockSize := int(blockHeader[1])<<16 | int(blockHeader[2])<<8 | int(blockHeader[3])
		pos += 4

		if blockType == 0 { // STREAMINFO
			if pos+blockSize > len(data) || blockSize < 18 {
				break
			}
			si := data[pos : pos+blockSize]
			sampleRate := (int(si[10]) << 12) | (int(si[11]) << 4) | (int(si[12]) >> 4)
			channels := int((si[12]>>1)&0x07) + 1
			totalSamples := (int64(si[13]&0x0F) << 32) | (int64(si[14]) << 24) | (int64(si[15]) << 16) | (int64(si[16]) << 8) | int64(si[17])

			if sampleRate > 0 && totalSamples > 0 {
				duration := time.Duration(float64(totalSamples) / float64(sampleRate) * float64(time.Second))
				bitrate := int(float64(len(data)*8) / duration.Seconds() / 1000)
				return AudioProperties{
					Bitrate:    bitrate,
					DurationMs: int(duration.Milliseconds()),
					Channels:   channels,
					SampleFreq: sampleRate,
				}
			}
			break
		}

		last := blockHeader[0]&0x80 != 0
		pos += blockSize
		if last {
			break
		}
	}
	return fallbackProperties(len(data), 1000)
}

// extractOGGProperties locates the last Ogg page's granule position to
// derive duration, assuming the common 48kHz Vorbis sample rate.
func extractOGGProperties(data []byte) AudioProperties {
	if len(data) < 27 || string(data[0:4]) != "OggS" {
		return fallbackProperties(len(data), 192)
	}

	tail := data
	if len(tail) > 65536 {
		tail = tail[len(tail)-65536:]
	}

	var lastGranule int64
	for i := len(tail) - 27; i >= 0; i-- {
		if string(tail[i:i+4]) == "OggS" {
			lastGranule = int64(binary.LittleEndian.Uint64(tail[i+6 : i+14]))
			break
		}
	}

	if lastGranule > 0 {
		sampleRate := 48000
		duration := time.Duration(float64(lastGranule) / float64(sampleRate) * float64(time.Second))
		bitrate := int(float64(len(data)*8) / duration.Seconds() / 1000)
		return AudioProperties{
			Bitrate:    bitrate,
			DurationMs: int(duration.Milliseconds()),
			Channels:   2,
			SampleFreq: sampleRate,
		}
	}
	return fallbackProperties(len(data), 192)
}

// extractWAVProperties reads the fmt chunk for exact sample rate/channels
// and derives duration from the payload's byte rate.
func extractWAVProperties(data []byte) AudioProperties {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return fallbackProperties(len(data), 1411)
	}

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8

		if chunkID == "fmt " {
			if pos+chunkSize > len(data) || chunkSize < 16 {
				break
			}
			fmtData := data[pos : pos+chunkSize]
			channels := int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate := binary.LittleEndian.Uint32(fmtData[4:8])
			byteRate := binary.LittleEndian.Uint32(fmtData[8:12])

			if byteRate > 0 {
				duration := time.Duration(float64(len(data)-44) / float64(byteRate) * float64(time.Second))
				return AudioProperties{
					Bitrate:    int(byteRate * 8 / 1000),
					DurationMs: int(duration.Milliseconds()),
					Channels:   channels,
					SampleFreq: int(sampleRate),
				}
			}
			break
		}
		pos += chunkSize
	}
	return fallbackProperties(len(data), 1411)
}

func fallbackProperties(size int, bitrate int) AudioProperties {
	durationMs := int(int64(size) * 8 / int64(bitrate))
	return AudioProperties{Bitrate: bitrate, DurationMs: durationMs, Channels: 2, SampleFreq: 44100}
}
