package fake

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/adaptertest"
	"github.com/radio-control/rfkd/internal/rfkill"
)

func TestFakeDeviceConformance(t *testing.T) {
	adaptertest.RunConformance(t, adaptertest.Harness{
		Name: "fake",
		New: func(t *testing.T) adapter.Device {
			return New(1, rfkill.TypeWLAN, false)
		},
	})
}

func TestHoldAndRelease(t *testing.T) {
	d := New(3, rfkill.TypeBluetooth, false)
	d.Hold = true

	var got []error
	d.SetSoftBlocked(true, func(err error) { got = append(got, err) })
	assert.Empty(t, got)
	assert.Equal(t, 1, d.Pending())
	assert.False(t, d.SoftBlocked())

	d.Release()
	require.Len(t, got, 1)
	assert.NoError(t, got[0])
	assert.True(t, d.SoftBlocked())
	assert.Equal(t, 0, d.Pending())
}

func TestFailLeavesStateUntouched(t *testing.T) {
	boom := errors.New("boom")
	d := New(3, rfkill.TypeBluetooth, false)
	d.Err = boom

	var got error
	d.SetSoftBlocked(true, func(err error) { got = err })
	assert.ErrorIs(t, got, boom)
	assert.False(t, d.SoftBlocked())
}

func TestRecorderSharedAcrossDevices(t *testing.T) {
	rec := &Recorder{}
	a := New(1, rfkill.TypeWLAN, false)
	b := New(2, rfkill.TypeWLAN, false)
	a.Recorder, b.Recorder = rec, rec

	b.SetSoftBlocked(true, nil)
	a.SetSoftBlocked(false, nil)
	assert.Equal(t, []uint32{2, 1}, rec.Indexes())
	assert.Equal(t, []Call{{Index: 2, Blocked: true}, {Index: 1, Blocked: false}}, rec.Calls)
}
