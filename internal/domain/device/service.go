// Package device manages the persistent identity of this unit: a UUID,
// a display name and the role it plays on the link.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Role is the side of the link a unit plays.
type Role string

const (
	RolePack       Role = "pack"
	RoleAttenuator Role = "attenuator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePack || r == RoleAttenuator
}

// Info contains the device identity information.
type Info struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// MarshalZerologObject lets the identity be logged with Object.
func (i Info) MarshalZerologObject(e *zerolog.Event) {
	e.Str("uuid", i.UUID).Str("name", i.Name).Str("role", string(i.Role))
}

// Service manages device identity.
type Service struct {
	mu         sync.RWMutex
	configPath string
	info       Info
}

// NewService loads the identity stored at configPath, or generates and
// persists a new one. A stored identity keeps its UUID; its role follows
// the role this process was started with.
func NewService(configPath string, role Role) (*Service, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	svc := &Service{configPath: configPath}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	dirty := false
	if err := svc.loadConfig(); err != nil {
		log.Debug().Err(err).Msg("No existing device config, generating new identity")
		svc.info.UUID = uuid.New().String()
		svc.info.Name = defaultName()
		dirty = true
	}
	if svc.info.Role != role {
		svc.info.Role = role
		dirty = true
	}

	if dirty {
		if err := svc.saveConfig(); err != nil {
			return nil, fmt.Errorf("failed to save device config: %w", err)
		}
	}

	log.Info().Object("device", svc.info).Msg("Device identity initialized")
	return svc, nil
}

func (s *Service) loadConfig() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return err
	}

	var cfg Info
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("invalid config format: %w", err)
	}

	if _, err := uuid.Parse(cfg.UUID); err != nil {
		return fmt.Errorf("config has invalid UUID: %w", err)
	}

	s.info = cfg
	if s.info.Name == "" {
		s.info.Name = defaultName()
	}
	return nil
}

func (s *Service) saveConfig() error {
	data, err := json.MarshalIndent(s.info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configPath, data, 0644)
}

// Info returns the current device identity.
func (s *Service) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// SetName updates the device name and persists it.
func (s *Service) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info.Name = name
	return s.saveConfig()
}

// UUID returns just the device UUID.
func (s *Service) UUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.UUID
}

func defaultName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "packlink"
	}
	return hostname
}
