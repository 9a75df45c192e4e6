package asr

import (
	"errors"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned by AudioDuration for non-WAV containers.
var ErrNotWAV = errors.New("not a valid wav file")

// AudioDuration reads the playback length from a WAV header. Other containers
// (webm, m4a when ffmpeg is missing) return ErrNotWAV and get no progress.
func AudioDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, ErrNotWAV
	}
	return dec.Duration()
}
