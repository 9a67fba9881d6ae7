package radio

import (
	"fmt"
	"sort"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/killswitch"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Lookup returns the killswitch for a concrete radio type.
type Lookup func(t rfkill.RadioType) *killswitch.Killswitch

// Registry owns the devices. It is confined to the arbitration loop.
type Registry struct {
	devices      map[uint32]adapter.Device
	killswitches Lookup
}

// NewRegistry returns an empty registry.
func NewRegistry(killswitches Lookup) *Registry {
	return &Registry{
		devices:      make(map[uint32]adapter.Device),
		killswitches: killswitches,
	}
}

// Add registers d and joins it to its killswitch. It returns false if the
// index is already taken.
func (r *Registry) Add(d adapter.Device) (bool, error) {
	if _, ok := r.devices[d.Index()]; ok {
		return false, nil
	}
	ks := r.killswitches(d.Type())
	if ks == nil {
		return false, fmt.Errorf("device %d: no killswitch for type %s", d.Index(), d.Type())
	}
	r.devices[d.Index()] = d
	ks.Add(d)
	return true, nil
}

// Remove drops the device at index and returns it.
func (r *Registry) Remove(index uint32) (adapter.Device, bool) {
	d, ok := r.devices[index]
	if !ok {
		return nil, false
	}
	if ks := r.killswitches(d.Type()); ks != nil {
		ks.Remove(d)
	}
	delete(r.devices, index)
	return d, true
}

// Update records observed flags on the device at index and refreshes its
// killswitch. changed is false when the flags were already current.
func (r *Registry) Update(index uint32, soft, hard bool) (d adapter.Device, changed, ok bool) {
	d, ok = r.devices[index]
	if !ok {
		return nil, false, false
	}
	changed = d.UpdateStates(soft, hard)
	if changed {
		r.Refresh(index)
	}
	return d, changed, true
}

// Refresh recomputes the killswitch of the device at index, for backends
// whose state moved on its own.
func (r *Registry) Refresh(index uint32) (adapter.Device, bool) {
	d, ok := r.devices[index]
	if !ok {
		return nil, false
	}
	if ks := r.killswitches(d.Type()); ks != nil {
		ks.Refresh()
	}
	return d, true
}

// Get returns the device at index.
func (r *Registry) Get(index uint32) (adapter.Device, bool) {
	d, ok := r.devices[index]
	return d, ok
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// List returns the devices ordered by index.
func (r *Registry) List() []adapter.Device {
	out := make([]adapter.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}
