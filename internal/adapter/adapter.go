package adapter

import (
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Kind names the backend family of a device.
type Kind string

const (
	KindKernel Kind = "kernel"
	KindModem  Kind = "modem"
	KindDriver Kind = "driver"
)

// Capability is a bit set of what a backend can do.
type Capability uint8

const (
	// CapHardBlock means the backend reports a hardware switch.
	CapHardBlock Capability = 1 << iota
	// CapSoftBlock means the backend accepts software block requests.
	CapSoftBlock
)

// Has reports whether all bits of o are set.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

// Completion receives the outcome of a soft block request. It is called
// exactly once, on the arbitration loop.
type Completion func(err error)

// Poster schedules fn on the arbitration loop. Backends that complete on
// another goroutine use it to hand results back.
type Poster func(fn func())

// Device is one radio control point.
type Device interface {
	Index() uint32
	Type() rfkill.RadioType
	Name() string
	Kind() Kind
	Capabilities() Capability
	SoftBlocked() bool
	HardBlocked() bool
	Platform() bool

	// SetSoftBlocked requests a soft block change and reports the outcome
	// through done. Kernel devices call done before returning.
	SetSoftBlocked(blocked bool, done Completion)

	// UpdateStates records observed block flags and reports whether either
	// of them changed.
	UpdateStates(soft, hard bool) bool

	base() *Base
}

// State derives the killswitch state of a single device.
func State(d Device) rfkill.KillswitchState {
	return rfkill.StateFromBlocks(d.SoftBlocked(), d.HardBlocked())
}

// Info is a copy of a device's identity and state.
type Info struct {
	Index    uint32                 `json:"index"`
	Type     rfkill.RadioType       `json:"-"`
	TypeName string                 `json:"type"`
	Name     string                 `json:"name"`
	Kind     Kind                   `json:"kind"`
	Soft     bool                   `json:"soft"`
	Hard     bool                   `json:"hard"`
	Platform bool                   `json:"platform"`
	State    rfkill.KillswitchState `json:"-"`
	StateStr string                 `json:"state"`
}

// Describe snapshots d.
func Describe(d Device) Info {
	st := State(d)
	return Info{
		Index:    d.Index(),
		Type:     d.Type(),
		TypeName: d.Type().String(),
		Name:     d.Name(),
		Kind:     d.Kind(),
		Soft:     d.SoftBlocked(),
		Hard:     d.HardBlocked(),
		Platform: d.Platform(),
		State:    st,
		StateStr: st.String(),
	}
}

// Base carries the fields every backend shares. Embedding it is the only way
// to satisfy Device.
type Base struct {
	index    uint32
	typ      rfkill.RadioType
	name     string
	soft     bool
	hard     bool
	platform bool
}

// NewBase returns a Base for a device with the given identity and observed flags.
func NewBase(index uint32, t rfkill.RadioType, name string, platform, soft, hard bool) Base {
	return Base{index: index, typ: t, name: name, platform: platform, soft: soft, hard: hard}
}

func (b *Base) Index() uint32          { return b.index }
func (b *Base) Type() rfkill.RadioType { return b.typ }
func (b *Base) Name() string           { return b.name }
func (b *Base) SoftBlocked() bool      { return b.soft }
func (b *Base) HardBlocked() bool      { return b.hard }
func (b *Base) Platform() bool         { return b.platform }

// SetName replaces the display name.
func (b *Base) SetName(name string) {
	b.name = name
}

// UpdateStates implements the idempotent update shared by all backends.
func (b *Base) UpdateStates(soft, hard bool) bool {
	if b.soft == soft && b.hard == hard {
		return false
	}
	b.soft = soft
	b.hard = hard
	return true
}

func (b *Base) base() *Base { return b }
