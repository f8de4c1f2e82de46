package protocol

import "strconv"

// Command is the one-byte code carried by a command packet. Zero is reserved
// as "no-op/uninitialized" and never travels on a valid frame.
type Command uint8

const (
	CmdNone Command = iota
	CmdHandshake
	CmdSyncStart
	CmdSyncEnd
	CmdWandConnected
	CmdWandDisconnected
	CmdPackOn
	CmdPackOff
	CmdWandOn
	CmdWandOff
	CmdToggleMute
	CmdMusicTrackLoopToggle
	CmdMusicIsPlaying
	CmdMusicIsNotPlaying
	CmdMusicIsPaused
	CmdMusicIsNotPaused
	CmdMusicTrackCountSync
	CmdModeSuperHero
	CmdModeOriginal
	CmdRedSwitchOn
	CmdRedSwitchOff
	CmdYear1984
	CmdYear1989
	CmdYearAfterlife
	CmdYearFrozenEmpire
	CmdProtonMode
	CmdSlimeMode
	CmdStasisMode
	CmdMesonMode
	CmdSpectralMode
	CmdHolidayMode
	CmdSettingsMode
	CmdPowerLevel1
	CmdPowerLevel2
	CmdPowerLevel3
	CmdPowerLevel4
	CmdPowerLevel5
	CmdAlarmOn
	CmdAlarmOff
	CmdVenting
	CmdVentingFinished
	CmdOverheating
	CmdOverheatingFinished
	CmdFiring
	CmdFiringStopped
	CmdCyclotronLidOn
	CmdCyclotronLidOff
	CmdCyclotronIncreaseSpeed
	CmdCyclotronNormalSpeed
	CmdBarrelExtended
	CmdBarrelRetracted
	CmdBatteryVoltagePack
	CmdWandPowerAmps

	// Controls sent by the attenuator to the pack.
	CmdMusicStartStop
	CmdMusicPauseResume
	CmdMusicNextTrack
	CmdMusicPrevTrack
	CmdMusicPlayTrack
	CmdVolumeIncrease
	CmdVolumeDecrease
	CmdVolumeEffectsIncrease
	CmdVolumeEffectsDecrease
	CmdVolumeMusicIncrease
	CmdVolumeMusicDecrease

	cmdLimit
)

var commandNames = [...]string{
	CmdNone:                   "none",
	CmdHandshake:              "handshake",
	CmdSyncStart:              "sync-start",
	CmdSyncEnd:                "sync-end",
	CmdWandConnected:          "wand-connected",
	CmdWandDisconnected:       "wand-disconnected",
	CmdPackOn:                 "pack-on",
	CmdPackOff:                "pack-off",
	CmdWandOn:                 "wand-on",
	CmdWandOff:                "wand-off",
	CmdToggleMute:             "toggle-mute",
	CmdMusicTrackLoopToggle:   "music-loop-toggle",
	CmdMusicIsPlaying:         "music-playing",
	CmdMusicIsNotPlaying:      "music-not-playing",
	CmdMusicIsPaused:          "music-paused",
	CmdMusicIsNotPaused:       "music-not-paused",
	CmdMusicTrackCountSync:    "music-track-count",
	CmdModeSuperHero:          "mode-super-hero",
	CmdModeOriginal:           "mode-original",
	CmdRedSwitchOn:            "red-switch-on",
	CmdRedSwitchOff:           "red-switch-off",
	CmdYear1984:               "year-1984",
	CmdYear1989:               "year-1989",
	CmdYearAfterlife:          "year-afterlife",
	CmdYearFrozenEmpire:       "year-frozen-empire",
	CmdProtonMode:             "stream-proton",
	CmdSlimeMode:              "stream-slime",
	CmdStasisMode:             "stream-stasis",
	CmdMesonMode:              "stream-meson",
	CmdSpectralMode:           "stream-spectral",
	CmdHolidayMode:            "stream-holiday",
	CmdSettingsMode:           "stream-settings",
	CmdPowerLevel1:            "power-level-1",
	CmdPowerLevel2:            "power-level-2",
	CmdPowerLevel3:            "power-level-3",
	CmdPowerLevel4:            "power-level-4",
	CmdPowerLevel5:            "power-level-5",
	CmdAlarmOn:                "alarm-on",
	CmdAlarmOff:               "alarm-off",
	CmdVenting:                "venting",
	CmdVentingFinished:        "venting-finished",
	CmdOverheating:            "overheating",
	CmdOverheatingFinished:    "overheating-finished",
	CmdFiring:                 "firing",
	CmdFiringStopped:          "firing-stopped",
	CmdCyclotronLidOn:         "cyclotron-lid-on",
	CmdCyclotronLidOff:        "cyclotron-lid-off",
	CmdCyclotronIncreaseSpeed: "cyclotron-speed-up",
	CmdCyclotronNormalSpeed:   "cyclotron-speed-reset",
	CmdBarrelExtended:         "barrel-extended",
	CmdBarrelRetracted:        "barrel-retracted",
	CmdBatteryVoltagePack:     "battery-voltage",
	CmdWandPowerAmps:          "wand-current",
	CmdMusicStartStop:         "music-start-stop",
	CmdMusicPauseResume:       "music-pause-resume",
	CmdMusicNextTrack:         "music-next",
	CmdMusicPrevTrack:         "music-prev",
	CmdMusicPlayTrack:         "music-play-track",
	CmdVolumeIncrease:         "volume-up",
	CmdVolumeDecrease:         "volume-down",
	CmdVolumeEffectsIncrease:  "effects-volume-up",
	CmdVolumeEffectsDecrease:  "effects-volume-down",
	CmdVolumeMusicIncrease:    "music-volume-up",
	CmdVolumeMusicDecrease:    "music-volume-down",
}

// Known reports whether c is one of the assigned command codes.
func (c Command) Known() bool {
	return c > CmdNone && c < cmdLimit
}

func (c Command) String() string {
	if c < cmdLimit {
		return commandNames[c]
	}
	return "command(" + strconv.Itoa(int(c)) + ")"
}

// Message is the one-byte code carried by a data packet.
type Message uint8

const (
	MsgNone Message = iota
	MsgVolumeSync
	MsgSpectralCustomMode
	MsgSpectralColourData
	MsgSavePrefsPack
	MsgSavePrefsWand
	MsgSavePrefsSmoke

	msgLimit
)

var messageNames = [...]string{
	MsgNone:               "none",
	MsgVolumeSync:         "volume-sync",
	MsgSpectralCustomMode: "spectral-custom-mode",
	MsgSpectralColourData: "spectral-colour-data",
	MsgSavePrefsPack:      "save-prefs-pack",
	MsgSavePrefsWand:      "save-prefs-wand",
	MsgSavePrefsSmoke:     "save-prefs-smoke",
}

// Known reports whether m is one of the assigned message codes.
func (m Message) Known() bool {
	return m > MsgNone && m < msgLimit
}

func (m Message) String() string {
	if m < msgLimit {
		return messageNames[m]
	}
	return "message(" + strconv.Itoa(int(m)) + ")"
}

// PrefsTag maps a save-preferences message to the tag of the blob it carries.
// Other messages map to TagUnknown.
func (m Message) PrefsTag() Tag {
	switch m {
	case MsgSavePrefsPack:
		return TagPackPrefs
	case MsgSavePrefsWand:
		return TagWandPrefs
	case MsgSavePrefsSmoke:
		return TagSmokePrefs
	default:
		return TagUnknown
	}
}
