// Package audio probes uploaded audio files for playability metadata.
package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ProbeDuration decodes just enough of the file at path to determine its
// duration. The decoder is a throwaway: the file handle is released before
// returning on both the success and failure paths.
func ProbeDuration(path, mimeType string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	switch mimeType {
	case "audio/wav", "audio/wave":
		return wavDuration(file)
	case "audio/mp3", "audio/mpeg":
		return mp3Duration(file)
	default:
		return 0, fmt.Errorf("unsupported media type for duration probe: %s", mimeType)
	}
}

func wavDuration(file *os.File) (time.Duration, error) {
	decoder := wav.NewDecoder(file)
	duration, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to decode WAV file: %w", err)
	}
	return duration, nil
}

func mp3Duration(file *os.File) (time.Duration, error) {
	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return 0, fmt.Errorf("failed to decode MP3 file: %w", err)
	}
	// Length is the total size in bytes of 16-bit stereo PCM output.
	bytesPerSecond := int64(decoder.SampleRate()) * 4
	if bytesPerSecond == 0 {
		return 0, fmt.Errorf("MP3 file reports zero sample rate")
	}
	seconds := float64(decoder.Length()) / float64(bytesPerSecond)
	return time.Duration(seconds * float64(time.Second)), nil
}
