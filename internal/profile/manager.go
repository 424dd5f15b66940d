package profile

import (
	"errors"
	"sync/atomic"
	"time"
)

var ErrNoProfile = errors.New("profile: no active snapshot")

type Manager struct {
	active atomic.Pointer[Snapshot]
}

func NewManager() *Manager { return &Manager{} }

// Set stores a copy of s as the active snapshot.
func (m *Manager) Set(s Snapshot) {
	cp := new(Snapshot)
	*cp = s
	if cp.Meta.LoadedAt.IsZero() {
		cp.Meta.LoadedAt = time.Now().UTC()
	}
	if cp.Meta.Version == "" {
		cp.Meta.Version = cp.Profile.Version
	}
	m.active.Store(cp)
}

func (m *Manager) Get() (*Snapshot, bool) {
	s := m.active.Load()
	return s, s != nil
}

func (m *Manager) ReadyErr() error {
	if _, ok := m.Get(); !ok {
		return ErrNoProfile
	}
	return nil
}

// ProfileVersion implements httpmw.ProfileInfo.
func (m *Manager) ProfileVersion() string {
	if s := m.active.Load(); s != nil {
		return s.Meta.Version
	}
	return ""
}

// ProfileHash implements httpmw.ProfileInfo.
func (m *Manager) ProfileHash() string {
	if s := m.active.Load(); s != nil {
		return s.Meta.SHA256
	}
	return ""
}

func (m *Manager) Source() Source {
	if s := m.active.Load(); s != nil {
		return s.Meta.Source
	}
	return SourceUnknown
}

func (m *Manager) LoadedAt() time.Time {
	if s := m.active.Load(); s != nil {
		return s.Meta.LoadedAt
	}
	return time.Time{}
}
