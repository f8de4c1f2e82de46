package mpd

import (
	"strconv"
	"strings"
)

// AudioFormat is the output format MPD reports for the playing track.
type AudioFormat struct {
	SampleRate int
	BitDepth   int
	Channels   int
	Format     string // "PCM", "DSD64", ...
}

func (f AudioFormat) String() string {
	return f.Format + " " + FormatSampleRate(f.SampleRate) + " " + FormatBitDepth(f.BitDepth)
}

// ParseAudioFormat parses MPD's "samplerate:bits:channels" audio field.
// It returns false for anything it cannot read.
func ParseAudioFormat(audio string) (AudioFormat, bool) {
	parts := strings.Split(audio, ":")
	if len(parts) < 2 {
		return AudioFormat{}, false
	}

	sampleRate, err := strconv.Atoi(parts[0])
	if err != nil {
		return AudioFormat{}, false
	}

	bitDepth, err := strconv.Atoi(parts[1])
	if err != nil {
		// Float output reports "f" as the bit depth.
		if parts[1] != "f" {
			return AudioFormat{}, false
		}
		bitDepth = 32
	}

	channels := 2
	if len(parts) >= 3 {
		if ch, err := strconv.Atoi(parts[2]); err == nil {
			channels = ch
		}
	}

	return AudioFormat{
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
		Channels:   channels,
		Format:     formatType(sampleRate),
	}, true
}

// formatType names DSD rates (multiples of the CD rate) and treats the
// rest as PCM.
func formatType(sampleRate int) string {
	switch sampleRate {
	case 2822400:
		return "DSD64"
	case 5644800:
		return "DSD128"
	case 11289600:
		return "DSD256"
	case 22579200:
		return "DSD512"
	default:
		return "PCM"
	}
}

// FormatSampleRate returns a human-readable sample rate string.
func FormatSampleRate(sampleRate int) string {
	if sampleRate >= 1000000 {
		return formatType(sampleRate)
	}
	if sampleRate >= 1000 {
		return strconv.FormatFloat(float64(sampleRate)/1000, 'f', -1, 64) + "kHz"
	}
	return strconv.Itoa(sampleRate) + "Hz"
}

// FormatBitDepth returns a human-readable bit depth string.
func FormatBitDepth(bitDepth int) string {
	return strconv.Itoa(bitDepth) + "-bit"
}
