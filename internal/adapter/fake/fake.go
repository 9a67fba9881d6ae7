// Package fake provides a scriptable Device for tests.
package fake

import (
	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Call is one soft block request seen by a fake device.
type Call struct {
	Index   uint32
	Blocked bool
}

// Recorder collects calls across several devices so tests can check order.
type Recorder struct {
	Calls []Call
}

// Indexes returns the device index of every recorded call.
func (r *Recorder) Indexes() []uint32 {
	out := make([]uint32, 0, len(r.Calls))
	for _, c := range r.Calls {
		out = append(out, c.Index)
	}
	return out
}

// Device is a Device whose completions are controlled by the test.
type Device struct {
	adapter.Base

	DeviceKind adapter.Kind
	Caps       adapter.Capability

	// Err, when set, fails every request.
	Err error
	// Hold keeps completions pending until Release or Fail.
	Hold bool
	// Recorder, when set, also receives every call.
	Recorder *Recorder
	// Calls lists the requested values in order.
	Calls []bool

	pending []pendingCall
}

type pendingCall struct {
	blocked bool
	done    adapter.Completion
}

// New returns a kernel-like fake with both capabilities.
func New(index uint32, t rfkill.RadioType, platform bool) *Device {
	return &Device{
		Base:       adapter.NewBase(index, t, "fake", platform, false, false),
		DeviceKind: adapter.KindKernel,
		Caps:       adapter.CapHardBlock | adapter.CapSoftBlock,
	}
}

// NewBlocked returns a fake with the given observed flags.
func NewBlocked(index uint32, t rfkill.RadioType, platform, soft, hard bool) *Device {
	d := New(index, t, platform)
	d.UpdateStates(soft, hard)
	return d
}

func (d *Device) Kind() adapter.Kind               { return d.DeviceKind }
func (d *Device) Capabilities() adapter.Capability { return d.Caps }

// SetSoftBlocked records the call and completes it unless Hold is set.
func (d *Device) SetSoftBlocked(blocked bool, done adapter.Completion) {
	d.Calls = append(d.Calls, blocked)
	if d.Recorder != nil {
		d.Recorder.Calls = append(d.Recorder.Calls, Call{Index: d.Index(), Blocked: blocked})
	}
	if d.Hold {
		d.pending = append(d.pending, pendingCall{blocked: blocked, done: done})
		return
	}
	d.complete(pendingCall{blocked: blocked, done: done}, d.Err)
}

// Pending reports how many completions are held.
func (d *Device) Pending() int {
	return len(d.pending)
}

// Release completes the oldest held request successfully.
func (d *Device) Release() {
	d.finish(nil)
}

// Fail completes the oldest held request with err.
func (d *Device) Fail(err error) {
	d.finish(err)
}

func (d *Device) finish(err error) {
	if len(d.pending) == 0 {
		return
	}
	p := d.pending[0]
	d.pending = d.pending[1:]
	d.complete(p, err)
}

func (d *Device) complete(p pendingCall, err error) {
	if err == nil {
		d.UpdateStates(p.blocked, d.HardBlocked())
	}
	if p.done != nil {
		p.done(err)
	}
}
