package killswitch

import (
	"fmt"
	"log"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// ChangeFunc is told about a new aggregate state.
type ChangeFunc func(t rfkill.RadioType, state rfkill.KillswitchState)

// Killswitch is the aggregate of every device of one radio type. It is not
// safe for concurrent use; it lives on the arbitration loop.
type Killswitch struct {
	typ      rfkill.RadioType
	devices  []adapter.Device
	state    rfkill.KillswitchState
	onChange ChangeFunc
	chain    *blockChain
}

// blockChain is an in-flight SetSoftwareBlocked.
type blockChain struct {
	devices []adapter.Device
	next    int
	blocked bool
	done    adapter.Completion
}

// New returns an empty killswitch for t.
func New(t rfkill.RadioType, onChange ChangeFunc) *Killswitch {
	return &Killswitch{
		typ:      t,
		state:    rfkill.StateNoAdapter,
		onChange: onChange,
	}
}

// Type returns the radio type.
func (k *Killswitch) Type() rfkill.RadioType { return k.typ }

// State returns the cached aggregate state.
func (k *Killswitch) State() rfkill.KillswitchState { return k.state }

// Devices returns the members, most recently added first.
func (k *Killswitch) Devices() []adapter.Device {
	out := make([]adapter.Device, len(k.devices))
	copy(out, k.devices)
	return out
}

// Len returns the number of members.
func (k *Killswitch) Len() int { return len(k.devices) }

// Busy reports whether a block request is in flight.
func (k *Killswitch) Busy() bool { return k.chain != nil }

// Add prepends d. Devices of another type and repeated adds are ignored.
func (k *Killswitch) Add(d adapter.Device) bool {
	if d.Type() != k.typ {
		log.Printf("warning: killswitch %s: refusing %s device %d", k.typ, d.Type(), d.Index())
		return false
	}
	if k.indexOf(d) >= 0 {
		return false
	}
	k.devices = append([]adapter.Device{d}, k.devices...)
	k.Refresh()
	return true
}

// Remove drops d from the members.
func (k *Killswitch) Remove(d adapter.Device) bool {
	i := k.indexOf(d)
	if i < 0 {
		return false
	}
	k.devices = append(k.devices[:i], k.devices[i+1:]...)
	k.Refresh()
	return true
}

// Refresh recomputes the aggregate and reports a change through the
// ChangeFunc. It returns the current state.
func (k *Killswitch) Refresh() rfkill.KillswitchState {
	state := Aggregate(k.devices)
	if state != k.state {
		log.Printf("killswitch %s: state %s -> %s", k.typ, k.state, state)
		k.state = state
		if k.onChange != nil {
			k.onChange(k.typ, state)
		}
	}
	return k.state
}

// Aggregate computes the state of a set of devices of one type.
func Aggregate(devices []adapter.Device) rfkill.KillswitchState {
	if len(devices) == 0 {
		return rfkill.StateNoAdapter
	}
	platform, other := rfkill.StateNoAdapter, rfkill.StateNoAdapter
	hasPlatform := false
	for _, d := range devices {
		st := adapter.State(d)
		if d.Platform() {
			hasPlatform = true
			platform = max(platform, st)
		} else {
			other = max(other, st)
		}
	}
	if !hasPlatform {
		return other
	}
	if platform == rfkill.StateUnblocked && other != rfkill.StateNoAdapter {
		return other
	}
	return platform
}

// SetSoftwareBlocked asks each member in turn, one at a time, to take the
// soft value blocked. The first failure ends the walk and is passed to done
// unchanged. Starting a walk while another is in flight fails with
// ErrInProgress.
func (k *Killswitch) SetSoftwareBlocked(blocked bool, done adapter.Completion) {
	if k.chain != nil {
		if done != nil {
			done(adapter.NewError(adapter.ErrInProgress, k.typ.String(),
				fmt.Errorf("block request already running")))
		}
		return
	}
	k.chain = &blockChain{
		devices: k.Devices(),
		blocked: blocked,
		done:    done,
	}
	k.advance(nil)
}

// advance is the single completion entry point of the walk.
func (k *Killswitch) advance(err error) {
	c := k.chain
	if err != nil {
		k.finish(c, err)
		return
	}
	// Members removed since the walk started are skipped.
	for c.next < len(c.devices) && !k.member(c.devices[c.next]) {
		c.next++
	}
	if c.next == len(c.devices) {
		k.finish(c, nil)
		return
	}
	d := c.devices[c.next]
	c.next++
	d.SetSoftBlocked(c.blocked, func(err error) {
		if k.chain != c {
			return
		}
		k.advance(err)
	})
}

func (k *Killswitch) finish(c *blockChain, err error) {
	k.chain = nil
	if c.done != nil {
		c.done(err)
	}
}

func (k *Killswitch) member(d adapter.Device) bool {
	for _, m := range k.devices {
		if m == d {
			return true
		}
	}
	return false
}

func (k *Killswitch) indexOf(d adapter.Device) int {
	for i, m := range k.devices {
		if m.Index() == d.Index() {
			return i
		}
	}
	return -1
}
