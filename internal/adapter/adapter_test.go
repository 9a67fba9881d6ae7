package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radio-control/rfkd/internal/rfkill"
)

type stubDevice struct {
	Base
}

func (s *stubDevice) Kind() Kind                      { return KindKernel }
func (s *stubDevice) Capabilities() Capability        { return CapHardBlock | CapSoftBlock }
func (s *stubDevice) SetSoftBlocked(bool, Completion) {}

func TestBaseUpdateStatesIsIdempotent(t *testing.T) {
	d := &stubDevice{Base: NewBase(1, rfkill.TypeWLAN, "phy0", false, false, false)}

	assert.True(t, d.UpdateStates(true, false))
	assert.False(t, d.UpdateStates(true, false))
	assert.True(t, d.UpdateStates(true, true))
	assert.False(t, d.UpdateStates(true, true))
	assert.True(t, d.UpdateStates(false, true))
}

func TestStateDerivation(t *testing.T) {
	d := &stubDevice{Base: NewBase(1, rfkill.TypeWLAN, "phy0", false, false, false)}
	assert.Equal(t, rfkill.StateUnblocked, State(d))
	d.UpdateStates(true, false)
	assert.Equal(t, rfkill.StateSoftBlocked, State(d))
	d.UpdateStates(true, true)
	assert.Equal(t, rfkill.StateHardBlocked, State(d))
}

func TestDescribe(t *testing.T) {
	var d Device = &stubDevice{Base: NewBase(4, rfkill.TypeBluetooth, "hci0", true, true, false)}
	info := Describe(d)
	assert.Equal(t, uint32(4), info.Index)
	assert.Equal(t, "BLUETOOTH", info.TypeName)
	assert.Equal(t, "hci0", info.Name)
	assert.True(t, info.Platform)
	assert.Equal(t, rfkill.StateSoftBlocked, info.State)
	assert.Equal(t, "SOFT_BLOCKED", info.StateStr)
}

func TestCapabilityHas(t *testing.T) {
	c := CapSoftBlock
	assert.True(t, c.Has(CapSoftBlock))
	assert.False(t, c.Has(CapHardBlock))
	assert.False(t, c.Has(CapHardBlock|CapSoftBlock))
}
