// Package protocol defines the wire contract between the pack, the wand and
// the attenuator: packet tags, sentinel bytes, command and message codes, and
// the fixed-layout records carried inside each packet.
//
// Every record is framed as: Start(1) | body | End(1). Multi-byte fields are
// little-endian, the native order of both controller families, with no padding.
package protocol

// Tag identifies the kind of record a transport packet carries.
type Tag uint8

const (
	TagUnknown    Tag = 0
	TagCommand    Tag = 1
	TagData       Tag = 2
	TagPackPrefs  Tag = 3
	TagWandPrefs  Tag = 4
	TagSmokePrefs Tag = 5
	TagFullSync   Tag = 6
)

func (t Tag) String() string {
	switch t {
	case TagCommand:
		return "command"
	case TagData:
		return "data"
	case TagPackPrefs:
		return "pack-prefs"
	case TagWandPrefs:
		return "wand-prefs"
	case TagSmokePrefs:
		return "smoke-prefs"
	case TagFullSync:
		return "full-sync"
	default:
		return "unknown"
	}
}

// IsPreferences reports whether t tags one of the three preference blobs.
func (t Tag) IsPreferences() bool {
	return t == TagPackPrefs || t == TagWandPrefs || t == TagSmokePrefs
}

// Direction holds the sentinel pair used by one direction of travel.
type Direction struct {
	Start byte
	End   byte
}

var (
	// PackToAttenuator frames everything the pack sends to the attenuator.
	PackToAttenuator = Direction{Start: 0x7B, End: 0x7D}

	// AttenuatorToPack frames everything the attenuator sends to the pack.
	AttenuatorToPack = Direction{Start: 0x3C, End: 0x3E}
)

// Reverse returns the sentinel pair expected on inbound traffic when d is
// the outbound pair.
func (d Direction) Reverse() Direction {
	if d == PackToAttenuator {
		return AttenuatorToPack
	}
	return PackToAttenuator
}

// Frame sizes including both sentinel bytes.
const (
	SentinelSize = 2

	CommandFrameSize    = SentinelSize + 3
	MessageFrameSize    = SentinelSize + 4
	SyncFrameSize       = SentinelSize + 23 + 4
	PackPrefsFrameSize  = SentinelSize + 29
	WandPrefsFrameSize  = SentinelSize + 18
	SmokePrefsFrameSize = SentinelSize + 21

	// MessageArgs is the number of argument bytes in a data message.
	MessageArgs = 3
)

// MusicTrackOrigin is the first track number used for music; effects occupy
// the numbers below it.
const MusicTrackOrigin = 500
