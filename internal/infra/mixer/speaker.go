package mixer

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Speaker sends the mix to the system sound card.
type Speaker struct {
	// Latency is the speaker buffer length.
	Latency time.Duration
}

func (s Speaker) Start(format beep.Format, stream beep.Streamer) error {
	latency := s.Latency
	if latency <= 0 {
		latency = 100 * time.Millisecond
	}
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(latency)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(stream)
	return nil
}
