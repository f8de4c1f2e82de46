// Package config holds runtime settings for packlink and binds them to
// command line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/edumarques81/packlink/internal/domain/device"
	"github.com/edumarques81/packlink/internal/infra/serial"
	"github.com/edumarques81/packlink/internal/infra/store"
	"github.com/edumarques81/packlink/internal/link"
)

// Config is the full runtime configuration.
type Config struct {
	Role device.Role
	// Name overrides the stored device name when set.
	Name string

	SerialPort string
	BaudRate   int

	MPDHost     string
	MPDPort     int
	MPDPassword string
	// MusicRoot is the MPD library directory holding the numbered tracks.
	MusicRoot   string
	// SoundDir holds numbered .wav/.ogg files for the local mixer. When
	// set, the mixer is preferred over MPD.
	SoundDir    string

	DBPath     string
	DevicePath string

	PollInterval      time.Duration
	PeerTimeout       time.Duration
	HeartbeatInterval time.Duration
	StatusInterval    time.Duration

	Debug bool
}

var baudRates = map[int]bool{
	9600: true, 19200: true, 38400: true, 57600: true, 115200: true,
}

// Default returns the settings used when no flag overrides them.
func Default() Config {
	return Config{
		Role:              device.RoleAttenuator,
		SerialPort:        "/dev/ttyUSB0",
		BaudRate:          serial.DefaultBaudRate,
		MPDHost:           "localhost",
		MPDPort:           6600,
		DBPath:            store.DefaultDBPath,
		DevicePath:        "data/device.json",
		PollInterval:      5 * time.Millisecond,
		PeerTimeout:       link.DefaultPeerTimeout,
		HeartbeatInterval: link.DefaultHeartbeatInterval,
		StatusInterval:    time.Minute,
	}
}

// BindFlags registers a flag for every field, using the current values
// as defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.Var(roleValue{&c.Role}, "role", "Side of the link to run: pack or attenuator")
	fs.StringVar(&c.Name, "name", c.Name, "Device name stored with the identity")
	fs.StringVarP(&c.SerialPort, "port", "p", c.SerialPort, "Serial device connected to the peer")
	fs.IntVarP(&c.BaudRate, "baud", "b", c.BaudRate, "Serial baud rate")
	fs.StringVar(&c.MPDHost, "mpd-host", c.MPDHost, "MPD host")
	fs.IntVar(&c.MPDPort, "mpd-port", c.MPDPort, "MPD port")
	fs.StringVar(&c.MPDPassword, "mpd-password", c.MPDPassword, "MPD password")
	fs.StringVar(&c.MusicRoot, "music-root", c.MusicRoot, "MPD directory holding the numbered tracks")
	fs.StringVar(&c.SoundDir, "sound-dir", c.SoundDir, "Directory of numbered sound files played by the local mixer")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "SQLite database for preferences and session history")
	fs.StringVar(&c.DevicePath, "device-config", c.DevicePath, "File holding this unit's identity")
	fs.DurationVar(&c.PollInterval, "poll", c.PollInterval, "Serial poll interval")
	fs.DurationVar(&c.PeerTimeout, "peer-timeout", c.PeerTimeout, "Silence after which the peer is considered gone")
	fs.DurationVar(&c.HeartbeatInterval, "heartbeat", c.HeartbeatInterval, "Handshake interval in the pack role")
	fs.DurationVar(&c.StatusInterval, "status", c.StatusInterval, "State logging interval, 0 to disable")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !c.Role.Valid() {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	if c.SerialPort == "" {
		return errors.New("serial port is required")
	}
	if !baudRates[c.BaudRate] {
		return fmt.Errorf("unsupported baud rate %d", c.BaudRate)
	}
	if c.Role == device.RolePack && (c.MPDPort <= 0 || c.MPDPort > 65535) {
		return fmt.Errorf("invalid MPD port %d", c.MPDPort)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.PeerTimeout <= 0 || c.HeartbeatInterval <= 0 {
		return errors.New("link timings must be positive")
	}
	if c.HeartbeatInterval >= c.PeerTimeout {
		return fmt.Errorf("heartbeat %s must be shorter than peer timeout %s", c.HeartbeatInterval, c.PeerTimeout)
	}
	return nil
}

// roleValue adapts device.Role to pflag.Value.
type roleValue struct{ r *device.Role }

func (v roleValue) String() string {
	if v.r == nil {
		return ""
	}
	return string(*v.r)
}

func (v roleValue) Set(s string) error {
	r := device.Role(s)
	if !r.Valid() {
		return fmt.Errorf("must be %q or %q", device.RolePack, device.RoleAttenuator)
	}
	*v.r = r
	return nil
}

func (v roleValue) Type() string { return "role" }
