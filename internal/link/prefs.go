package link

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/protocol"
)

var (
	// ErrNotSynced is returned for packets that need a synced peer.
	ErrNotSynced = errors.New("peer not synchronized")
	// ErrNotPreferences is returned for tags that carry no preferences blob.
	ErrNotPreferences = errors.New("not a preferences tag")
)

// PrefsStore persists preference frames across restarts.
// LoadPrefs returns nil and no error when nothing is stored for tag.
type PrefsStore interface {
	SavePrefs(tag protocol.Tag, frame []byte) error
	LoadPrefs(tag protocol.Tag) ([]byte, error)
}

// Preferences holds the three preference blobs. Blobs are only ever
// replaced whole.
type Preferences struct {
	send    *Sender
	live    *Liveness
	inbound protocol.Direction
	store   PrefsStore

	pack  protocol.PackPrefs
	wand  protocol.WandPrefs
	smoke protocol.SmokePrefs

	received map[protocol.Tag]bool
	held     map[protocol.Tag]bool
}

var prefsTags = []protocol.Tag{protocol.TagPackPrefs, protocol.TagWandPrefs, protocol.TagSmokePrefs}

// NewPreferences creates an empty preference set. store may be nil.
func NewPreferences(send *Sender, live *Liveness, inbound protocol.Direction, store PrefsStore) *Preferences {
	return &Preferences{
		send:     send,
		live:     live,
		inbound:  inbound,
		store:    store,
		received: make(map[protocol.Tag]bool),
		held:     make(map[protocol.Tag]bool),
	}
}

// Send transmits the blob for kind.
func (p *Preferences) Send(kind protocol.Tag) error {
	rec, err := p.record(kind)
	if err != nil {
		return err
	}
	if err := p.send.Record(rec); err != nil {
		return err
	}
	log.Info().Stringer("kind", kind).Msg("Sent preferences")
	return nil
}

// SendHeld transmits every blob that was restored, received or set.
func (p *Preferences) SendHeld() error {
	for _, kind := range prefsTags {
		if !p.held[kind] {
			continue
		}
		if err := p.Send(kind); err != nil {
			return err
		}
	}
	return nil
}

// OnReceive replaces the blob for kind with the decoded frame and persists
// it when a store is configured. Frames are refused until the peer has
// synced.
func (p *Preferences) OnReceive(kind protocol.Tag, frame []byte) error {
	if !kind.IsPreferences() {
		return fmt.Errorf("%s: %w", kind, ErrNotPreferences)
	}
	if p.live.Waiting() {
		return fmt.Errorf("%s preferences: %w", kind, ErrNotSynced)
	}
	rec, err := protocol.Decode(kind, p.inbound, frame)
	if err != nil {
		return err
	}
	p.set(rec)
	p.received[kind] = true
	log.Info().Stringer("kind", kind).Msg("Preferences received")

	if p.store != nil {
		if err := p.store.SavePrefs(kind, frame); err != nil {
			return fmt.Errorf("persist %s preferences: %w", kind, err)
		}
	}
	return nil
}

// Save persists the current blob for kind.
func (p *Preferences) Save(kind protocol.Tag) error {
	if p.store == nil {
		return nil
	}
	rec, err := p.record(kind)
	if err != nil {
		return err
	}
	if err := p.store.SavePrefs(kind, protocol.Encode(p.inbound, rec)); err != nil {
		return fmt.Errorf("persist %s preferences: %w", kind, err)
	}
	log.Info().Stringer("kind", kind).Msg("Preferences saved")
	return nil
}

// Restore loads every stored blob. Missing blobs are skipped; restored
// blobs do not count as received from the peer.
func (p *Preferences) Restore() error {
	if p.store == nil {
		return nil
	}
	for _, kind := range prefsTags {
		frame, err := p.store.LoadPrefs(kind)
		if err != nil {
			return fmt.Errorf("load %s preferences: %w", kind, err)
		}
		if frame == nil {
			continue
		}
		rec, err := protocol.Decode(kind, p.inbound, frame)
		if err != nil {
			log.Warn().Err(err).Stringer("kind", kind).Msg("Discarding stored preferences")
			continue
		}
		p.set(rec)
		log.Debug().Stringer("kind", kind).Msg("Preferences restored")
	}
	return nil
}

// Received reports whether the peer has sent the blob for kind.
func (p *Preferences) Received(kind protocol.Tag) bool {
	return p.received[kind]
}

func (p *Preferences) Pack() protocol.PackPrefs   { return p.pack }
func (p *Preferences) Wand() protocol.WandPrefs   { return p.wand }
func (p *Preferences) Smoke() protocol.SmokePrefs { return p.smoke }

func (p *Preferences) SetPack(v protocol.PackPrefs)   { p.set(v) }
func (p *Preferences) SetWand(v protocol.WandPrefs)   { p.set(v) }
func (p *Preferences) SetSmoke(v protocol.SmokePrefs) { p.set(v) }

func (p *Preferences) record(kind protocol.Tag) (protocol.Record, error) {
	switch kind {
	case protocol.TagPackPrefs:
		return p.pack, nil
	case protocol.TagWandPrefs:
		return p.wand, nil
	case protocol.TagSmokePrefs:
		return p.smoke, nil
	default:
		return nil, fmt.Errorf("%s: %w", kind, ErrNotPreferences)
	}
}

func (p *Preferences) set(rec protocol.Record) {
	switch r := rec.(type) {
	case protocol.PackPrefs:
		p.pack = r
		p.held[protocol.TagPackPrefs] = true
	case protocol.WandPrefs:
		p.wand = r
		p.held[protocol.TagWandPrefs] = true
	case protocol.SmokePrefs:
		p.smoke = r
		p.held[protocol.TagSmokePrefs] = true
	}
}
