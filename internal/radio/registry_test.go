package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/rfkd/internal/adapter/fake"
	"github.com/radio-control/rfkd/internal/killswitch"
	"github.com/radio-control/rfkd/internal/rfkill"
)

func newTestRegistry() (*Registry, map[rfkill.RadioType]*killswitch.Killswitch) {
	ks := make(map[rfkill.RadioType]*killswitch.Killswitch)
	for _, t := range rfkill.Types() {
		ks[t] = killswitch.New(t, nil)
	}
	return NewRegistry(func(t rfkill.RadioType) *killswitch.Killswitch { return ks[t] }), ks
}

func TestAddJoinsKillswitch(t *testing.T) {
	r, ks := newTestRegistry()
	d := fake.New(3, rfkill.TypeBluetooth, false)

	added, err := r.Add(d)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, ks[rfkill.TypeBluetooth].Len())
	assert.Equal(t, rfkill.StateUnblocked, ks[rfkill.TypeBluetooth].State())
}

func TestDuplicateAddIsNoop(t *testing.T) {
	r, ks := newTestRegistry()
	_, err := r.Add(fake.New(3, rfkill.TypeBluetooth, false))
	require.NoError(t, err)

	added, err := r.Add(fake.New(3, rfkill.TypeWLAN, false))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 0, ks[rfkill.TypeWLAN].Len())
}

func TestAddUnknownType(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Add(fake.New(3, rfkill.TypeAll, false))
	assert.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestUpdateRefreshesKillswitch(t *testing.T) {
	r, ks := newTestRegistry()
	_, _ = r.Add(fake.New(1, rfkill.TypeWLAN, false))

	_, changed, ok := r.Update(1, true, false)
	assert.True(t, ok)
	assert.True(t, changed)
	assert.Equal(t, rfkill.StateSoftBlocked, ks[rfkill.TypeWLAN].State())

	_, changed, ok = r.Update(1, true, false)
	assert.True(t, ok)
	assert.False(t, changed)

	_, _, ok = r.Update(9, true, false)
	assert.False(t, ok)
}

func TestRemoveLeavesKillswitch(t *testing.T) {
	r, ks := newTestRegistry()
	_, _ = r.Add(fake.New(1, rfkill.TypeWLAN, false))

	d, ok := r.Remove(1)
	require.True(t, ok)
	assert.Equal(t, uint32(1), d.Index())
	assert.Equal(t, 0, ks[rfkill.TypeWLAN].Len())
	assert.Equal(t, rfkill.StateNoAdapter, ks[rfkill.TypeWLAN].State())

	_, ok = r.Remove(1)
	assert.False(t, ok)
}

func TestListOrderedByIndex(t *testing.T) {
	r, _ := newTestRegistry()
	for _, i := range []uint32{200, 0, 7} {
		_, _ = r.Add(fake.New(i, rfkill.TypeWLAN, false))
	}
	var got []uint32
	for _, d := range r.List() {
		got = append(got, d.Index())
	}
	assert.Equal(t, []uint32{0, 7, 200}, got)
}
