// Package main is the entry point for packlink, the serial control link
// between a proton pack and its attenuator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/edumarques81/packlink/internal/audio"
	"github.com/edumarques81/packlink/internal/bargraph"
	"github.com/edumarques81/packlink/internal/config"
	"github.com/edumarques81/packlink/internal/domain/device"
	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/infra/mixer"
	"github.com/edumarques81/packlink/internal/infra/mpd"
	"github.com/edumarques81/packlink/internal/infra/serial"
	"github.com/edumarques81/packlink/internal/infra/store"
	"github.com/edumarques81/packlink/internal/link"
	"github.com/edumarques81/packlink/internal/protocol"
	"github.com/edumarques81/packlink/internal/version"
)

// node is the role-specific side of the link driven by the poll loop.
type node interface {
	Poll() link.Result
	Tick()
	Disconnected() bool
	Reset()
	Liveness() *link.Liveness
	Preferences() *link.Preferences
}

func main() {
	cfg := config.Default()
	cfg.BindFlags(flag.CommandLine)
	showVersion := flag.BoolP("version", "v", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Pack / Attenuator Control Link")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("role", string(cfg.Role)).
		Str("port", cfg.SerialPort).
		Int("baud", cfg.BaudRate).
		Dur("peer_timeout", cfg.PeerTimeout).
		Msg("Configuration")

	identity, err := device.NewService(cfg.DevicePath, cfg.Role)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load device identity")
	}
	if cfg.Name != "" && cfg.Name != identity.Info().Name {
		if err := identity.SetName(cfg.Name); err != nil {
			log.Warn().Err(err).Msg("Failed to save device name")
		}
	}

	// Persistence is optional: the link runs without it.
	var prefsStore link.PrefsStore
	var sessions sessionLog
	var stats statsSource
	db := store.NewDB(cfg.DBPath)
	if err := db.Open(); err != nil {
		log.Warn().Err(err).Msg("Store unavailable, preferences will not persist")
	} else {
		defer db.Close()
		prefsStore = db
		sessions = db
		stats = db
	}

	port, err := serial.Open(cfg.SerialPort, cfg.BaudRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open serial port")
	}
	defer port.Close()

	clock := clockwork.NewRealClock()
	sctx := state.NewContext(state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))
	opts := link.Options{
		Clock:             clock,
		PeerTimeout:       cfg.PeerTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Store:             prefsStore,
	}

	var n node
	var engine *audio.Engine
	var dev audio.Device
	switch cfg.Role {
	case device.RolePack:
		mpdClient := mpd.NewClient(cfg.MPDHost, cfg.MPDPort, cfg.MPDPassword)
		defer mpdClient.Close()

		var local audio.Device
		if cfg.SoundDir != "" {
			local = mixer.NewDevice(cfg.SoundDir, mixer.DefaultSampleRate, mixer.Speaker{})
		}
		dev = audio.Select(local, mpd.NewDevice(mpdClient, cfg.MusicRoot))
		engine = audio.NewEngine(dev, sctx, link.NewSender(port, protocol.PackToAttenuator), clock, audio.DefaultConfig())
		n = link.NewPackPeer(port, sctx, engine, opts)
	default:
		n = link.New(port, protocol.PackToAttenuator, sctx, bargraph.New(), opts)
	}

	if err := n.Preferences().Restore(); err != nil {
		log.Warn().Err(err).Msg("Failed to restore preferences")
	}
	if v := int(n.Preferences().Pack().DefaultSystemVolume); cfg.Role == device.RolePack && v > 0 && v <= 100 {
		sctx.Mutate(func(_ *state.System, a *state.Audio) bool {
			a.SetMasterPercent(v)
			return true
		})
	}
	if engine != nil && !engine.Reset() {
		log.Info().Msg("No music tracks available")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Object("device", identity.Info()).Msg("Link running")
	status := &statusReport{
		device:  identity.UUID(),
		ctx:     sctx,
		live:    n.Liveness(),
		dropped: port.Dropped,
		stats:   stats,
		dev:     dev,
	}
	run(ctx, cfg, n, engine, newSessionTracker(sessions, string(cfg.Role), clock), status)

	if engine != nil {
		engine.StopMusic()
	}
	log.Info().Msg("Link stopped")
}

// run polls the link until ctx is cancelled. engine may be nil.
func run(ctx context.Context, cfg config.Config, n node, engine *audio.Engine, tracker *sessionTracker, report *statusReport) {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var status <-chan time.Time
	if cfg.StatusInterval > 0 {
		t := time.NewTicker(cfg.StatusInterval)
		defer t.Stop()
		status = t.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down...")
			n.Reset()
			tracker.observe(n.Liveness().Session())
			return

		case <-status:
			report.write(log.Logger)

		case <-ticker.C:
			if res := n.Poll(); res.Changed {
				log.Debug().Stringer("tag", res.Tag).Msg("State changed")
			}
			n.Tick()
			if engine != nil {
				engine.Tick()
			}
			tracker.observe(n.Liveness().Session())

			if n.Disconnected() {
				log.Warn().Dur("timeout", cfg.PeerTimeout).Msg("Peer went silent, waiting for a new sync")
				n.Reset()
				tracker.observe(n.Liveness().Session())
			}
		}
	}
}
