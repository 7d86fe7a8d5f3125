package intake

import (
	"os"
	"time"

	"github.com/go-audio/wav"
)

// probeWav reads the RIFF header and reports the declared duration.
func probeWav(path string) (time.Duration, bool) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return 0, false
	}
	dur, err := decoder.Duration()
	if err != nil {
		return 0, false
	}
	return dur, true
}
