package mixer

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/rs/zerolog/log"
)

// voice is one sounding track. It is streamed by the mixer and returns
// false once stopped or finished, which drops it from the mix.
type voice struct {
	track  uint16
	src    beep.StreamSeekCloser
	stream beep.Streamer
	from   beep.SampleRate
	to     beep.SampleRate

	loop   bool
	locked bool
	paused bool
	seq    uint64

	gain     float64 // dB
	target   float64
	step     float64
	fadeLeft int
	stopFade bool

	done bool
}

func newVoice(track uint16, src beep.StreamSeekCloser, from, to beep.SampleRate, gain int, loop, locked bool, seq uint64) *voice {
	v := &voice{
		track:  track,
		src:    src,
		from:   from,
		to:     to,
		loop:   loop,
		locked: locked,
		seq:    seq,
		gain:   float64(gain),
	}
	v.stream = v.resampled()
	return v
}

func (v *voice) resampled() beep.Streamer {
	if v.from == v.to {
		return v.src
	}
	return beep.Resample(resampleQuality, v.from, v.to, v.src)
}

func (v *voice) setGain(gain int) {
	v.gain = float64(gain)
	v.fadeLeft = 0
	v.stopFade = false
}

// fade ramps the gain to target over n samples, stopping at the end when
// stop is set.
func (v *voice) fade(target, n int, stop bool) {
	if n <= 0 {
		v.setGain(target)
		if stop {
			v.stop()
		}
		return
	}
	v.target = float64(target)
	v.step = (v.target - v.gain) / float64(n)
	v.fadeLeft = n
	v.stopFade = stop
}

func (v *voice) stop() {
	if v.done {
		return
	}
	v.done = true
	if err := v.src.Close(); err != nil {
		log.Debug().Err(err).Uint16("track", v.track).Msg("Closing track failed")
	}
}

func (v *voice) Stream(samples [][2]float64) (int, bool) {
	if v.done {
		return 0, false
	}
	if v.paused {
		clear(samples)
		return len(samples), true
	}

	filled := 0
	rewound := false
	for filled < len(samples) {
		n, ok := v.stream.Stream(samples[filled:])
		filled += n
		if n > 0 {
			rewound = false
		}
		if ok && n > 0 {
			continue
		}
		// End of file. Rewinding twice in a row means the file is empty.
		if !v.loop || rewound || v.src.Seek(0) != nil {
			break
		}
		v.stream = v.resampled()
		rewound = true
	}

	v.apply(samples[:filled])
	if filled < len(samples) {
		v.stop()
	}
	if filled == 0 {
		return 0, false
	}
	return filled, true
}

func (v *voice) apply(samples [][2]float64) {
	if v.fadeLeft == 0 {
		g := gainFactor(v.gain)
		for i := range samples {
			samples[i][0] *= g
			samples[i][1] *= g
		}
		return
	}

	for i := range samples {
		if v.fadeLeft == 0 && v.stopFade {
			clear(samples[i:])
			v.stop()
			return
		}
		if v.fadeLeft > 0 {
			v.gain += v.step
			v.fadeLeft--
			if v.fadeLeft == 0 {
				v.gain = v.target
			}
		}
		g := gainFactor(v.gain)
		samples[i][0] *= g
		samples[i][1] *= g
	}
	if v.fadeLeft == 0 && v.stopFade {
		v.stop()
	}
}

func (v *voice) Err() error {
	return v.src.Err()
}

func gainFactor(db float64) float64 {
	return math.Pow(10, db/20)
}

func msec(n uint) time.Duration {
	return time.Duration(n) * time.Millisecond
}
