package mpd_test

import (
	"testing"

	"github.com/edumarques81/packlink/internal/infra/mpd"
)

func TestParseAudioFormat(t *testing.T) {
	tests := []struct {
		name   string
		audio  string
		ok     bool
		expect mpd.AudioFormat
	}{
		{"PCM 44.1kHz/16-bit", "44100:16:2", true, mpd.AudioFormat{SampleRate: 44100, BitDepth: 16, Channels: 2, Format: "PCM"}},
		{"PCM 192kHz/24-bit", "192000:24:2", true, mpd.AudioFormat{SampleRate: 192000, BitDepth: 24, Channels: 2, Format: "PCM"}},
		{"mono", "22050:16:1", true, mpd.AudioFormat{SampleRate: 22050, BitDepth: 16, Channels: 1, Format: "PCM"}},
		{"float", "48000:f:2", true, mpd.AudioFormat{SampleRate: 48000, BitDepth: 32, Channels: 2, Format: "PCM"}},
		{"no channels", "48000:24", true, mpd.AudioFormat{SampleRate: 48000, BitDepth: 24, Channels: 2, Format: "PCM"}},
		{"DSD64", "2822400:1:2", true, mpd.AudioFormat{SampleRate: 2822400, BitDepth: 1, Channels: 2, Format: "DSD64"}},
		{"DSD512", "22579200:1:2", true, mpd.AudioFormat{SampleRate: 22579200, BitDepth: 1, Channels: 2, Format: "DSD512"}},
		{"empty", "", false, mpd.AudioFormat{}},
		{"garbage", "abc:def", false, mpd.AudioFormat{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mpd.ParseAudioFormat(tt.audio)
			if ok != tt.ok {
				t.Fatalf("ParseAudioFormat(%q) ok = %v, want %v", tt.audio, ok, tt.ok)
			}
			if got != tt.expect {
				t.Errorf("ParseAudioFormat(%q) = %+v, want %+v", tt.audio, got, tt.expect)
			}
		})
	}
}

func TestFormatSampleRate(t *testing.T) {
	tests := []struct {
		sampleRate int
		expected   string
	}{
		{44100, "44.1kHz"},
		{48000, "48kHz"},
		{192000, "192kHz"},
		{2822400, "DSD64"},
		{5644800, "DSD128"},
		{11289600, "DSD256"},
		{8000, "8kHz"},
		{500, "500Hz"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := mpd.FormatSampleRate(tt.sampleRate)
			if result != tt.expected {
				t.Errorf("FormatSampleRate(%d) = %q, want %q", tt.sampleRate, result, tt.expected)
			}
		})
	}
}

func TestFormatBitDepth(t *testing.T) {
	if got := mpd.FormatBitDepth(24); got != "24-bit" {
		t.Errorf("FormatBitDepth(24) = %q", got)
	}
}
