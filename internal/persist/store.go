// Package persist keeps the per-type soft block state across restarts.
//
// The file holds one group per radio type with two keys: "soft", the last
// recorded soft block, and "prev-soft", whether the type was already soft
// blocked when flight mode was last engaged. With strict flight mode WWAN
// has no state of its own: writes are dropped, prev-soft reads false and
// soft reads the ALL group, which flight mode records.
package persist

import (
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/radio-control/rfkd/internal/fsutil"
	"github.com/radio-control/rfkd/internal/rfkill"
)

type group struct {
	Soft     *bool `yaml:"soft,omitempty"`
	PrevSoft *bool `yaml:"prev-soft,omitempty"`
}

// Store is a file-backed persisted state. A Store with no path keeps state
// in memory only.
type Store struct {
	path   string
	strict bool

	mu     sync.Mutex
	groups map[string]*group
}

// Open loads path. A missing or unreadable file leaves the store empty.
func Open(path string, strictFlightMode bool) *Store {
	s := &Store{path: path, strict: strictFlightMode, groups: make(map[string]*group)}
	if path == "" {
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("warning: persist: could not read %s: %v", path, err)
		}
		return s
	}
	if err := yaml.Unmarshal(data, &s.groups); err != nil {
		log.Printf("warning: persist: could not parse %s: %v", path, err)
		s.groups = make(map[string]*group)
	}
	return s
}

// NewMemory returns a store that never touches the disk.
func NewMemory(strictFlightMode bool) *Store {
	return Open("", strictFlightMode)
}

func (s *Store) suppressed(t rfkill.RadioType) bool {
	return s.strict && t == rfkill.TypeWWAN
}

// PersistedSoft returns the recorded soft block for t.
func (s *Store) PersistedSoft(t rfkill.RadioType) bool {
	if s.suppressed(t) {
		t = rfkill.TypeAll
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groups[t.String()]
	return g != nil && g.Soft != nil && *g.Soft
}

// SetPersistedSoft records the soft block for t.
func (s *Store) SetPersistedSoft(t rfkill.RadioType, soft bool) {
	if s.suppressed(t) {
		return
	}
	s.set(t, soft, func(g *group) **bool { return &g.Soft })
}

// PrevSoft returns the prev-soft hint for t.
func (s *Store) PrevSoft(t rfkill.RadioType) bool {
	if s.suppressed(t) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groups[t.String()]
	return g != nil && g.PrevSoft != nil && *g.PrevSoft
}

// SetPrevSoft records the prev-soft hint for t.
func (s *Store) SetPrevSoft(t rfkill.RadioType, prev bool) {
	if s.suppressed(t) {
		return
	}
	s.set(t, prev, func(g *group) **bool { return &g.PrevSoft })
}

// set stores v in the field of t's group and saves if it changed.
func (s *Store) set(t rfkill.RadioType, v bool, field func(*group) **bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[t.String()]
	if !ok {
		g = &group{}
		s.groups[t.String()] = g
	}
	p := field(g)
	if *p != nil && **p == v {
		return
	}
	*p = &v
	s.save()
}

// save writes the file. Failures are logged; memory stays authoritative.
func (s *Store) save() {
	if s.path == "" {
		return
	}
	data, err := yaml.Marshal(s.groups)
	if err != nil {
		log.Printf("warning: persist: encode state: %v", err)
		return
	}
	if err := fsutil.AtomicWrite(s.path, data, 0o644); err != nil {
		log.Printf("warning: persist: %v", err)
	}
}
