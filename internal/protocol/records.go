package protocol

// Record is any typed payload that can travel inside a packet.
type Record interface {
	Tag() Tag
}

// CommandPacket carries a command code and an optional argument for values
// that do not fit a byte, such as music track numbers.
type CommandPacket struct {
	Code Command
	Arg  uint16
}

func (CommandPacket) Tag() Tag { return TagCommand }

// MessagePacket carries a message code and three argument bytes.
type MessagePacket struct {
	Code Message
	Args [MessageArgs]byte
}

func (MessagePacket) Tag() Tag { return TagData }

// SyncData is the full-state snapshot the pack sends to a newly connected
// attenuator. Enumerations use the same numbering as the command codes'
// selections starting at 1; see the link package for the decode tables.
type SyncData struct {
	SystemMode         uint8
	IonArmSwitch       uint8 // 2 == on
	CyclotronLidState  uint8
	SystemYear         uint8
	PackOn             uint8
	WandOn             uint8
	PowerLevel         uint8
	StreamMode         uint8
	WandPresent        uint8
	BarrelExtended     uint8
	WandFiring         uint8
	OverheatingNow     uint8
	PackAlarm          uint8
	SpeedMultiplier    uint8
	SpectralColour     uint8
	SpectralSaturation uint8
	MasterMuted        uint8 // 2 == muted
	MasterVolume       uint8
	EffectsVolume      uint8
	MusicVolume        uint8
	MusicPlaying       uint8
	MusicPaused        uint8
	TrackLooped        uint8 // 2 == looped
	CurrentTrack       uint16
	MusicCount         uint16
}

func (SyncData) Tag() Tag { return TagFullSync }

// PackPrefs is the pack's persisted configuration blob.
type PackPrefs struct {
	DefaultSystemModePack uint8
	DefaultYearThemePack  uint8
	CurrentYearThemePack  uint8
	DefaultSystemVolume   uint8
	PackVibration         uint8
	RibbonCableAlarm      uint8
	CyclotronDirection    uint8
	DemoLightMode         uint8
	ProtonStreamEffects   uint8
	OverheatStrobeNF      uint8
	OverheatSyncToFan     uint8
	OverheatLightsOff     uint8
	LedCycLidCount        uint8
	LedCycLidHue          uint8
	LedCycLidSat          uint8
	LedCycLidCenter       uint8
	LedCycLidSimRing      uint8
	LedCycInnerPanel      uint8
	LedCycCakeCount       uint8
	LedCycCakeHue         uint8
	LedCycCakeSat         uint8
	LedCycCakeGRB         uint8
	LedCycCavCount        uint8
	LedVGCyclotron        uint8
	LedPowercellCount     uint8
	LedInvertPowercell    uint8
	LedPowercellHue       uint8
	LedPowercellSat       uint8
	LedVGPowercell        uint8
}

func (PackPrefs) Tag() Tag { return TagPackPrefs }

// WandPrefs is the wand's persisted configuration blob.
type WandPrefs struct {
	LedWandCount          uint8
	LedWandHue            uint8
	LedWandSat            uint8
	SpectralModesEnabled  uint8
	OverheatEnabled       uint8
	DefaultFiringMode     uint8
	WandVibration         uint8
	WandSoundsToPack      uint8
	QuickVenting          uint8
	AutoVentLight         uint8
	WandBeepLoop          uint8
	WandBootError         uint8
	DefaultYearModeWand   uint8
	DefaultYearModeCTS    uint8
	InvertWandBargraph    uint8
	BargraphOverheatBlink uint8
	BargraphIdleAnimation uint8
	BargraphFireAnimation uint8
}

func (WandPrefs) Tag() Tag { return TagWandPrefs }

// SmokePrefs holds the per-power-level overheat timing tables. Each table
// runs from power level 5 down to power level 1, matching the wire order.
type SmokePrefs struct {
	SmokeEnabled       uint8
	OverheatContinuous [5]uint8
	OverheatDuration   [5]uint8
	OverheatLevel      [5]uint8
	OverheatDelay      [5]uint8
}

// ForLevel returns the continuous, duration, level and delay settings for
// power level 1..5.
func (p SmokePrefs) ForLevel(level int) (continuous, duration, overheatLevel, delay uint8) {
	if level < 1 || level > 5 {
		return 0, 0, 0, 0
	}
	i := 5 - level
	return p.OverheatContinuous[i], p.OverheatDuration[i], p.OverheatLevel[i], p.OverheatDelay[i]
}

func (SmokePrefs) Tag() Tag { return TagSmokePrefs }
