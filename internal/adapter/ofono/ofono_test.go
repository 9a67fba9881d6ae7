package ofono

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/adaptertest"
	"github.com/radio-control/rfkd/internal/rfkill"
)

type setCall struct {
	path  string
	name  string
	value interface{}
	done  func(error)
}

// mockBus records SetProperty calls and lets the test answer them.
type mockBus struct {
	modems  []Modem
	calls   []setCall
	signals chan Signal
	// autoReply answers calls immediately with this error.
	autoReply bool
	replyErr  error
}

func (m *mockBus) Modems() ([]Modem, error) { return m.modems, nil }

func (m *mockBus) SetModemProperty(path, name string, value interface{}, done func(error)) {
	m.calls = append(m.calls, setCall{path: path, name: name, value: value, done: done})
	if m.autoReply {
		done(m.replyErr)
	}
}

func (m *mockBus) Subscribe(ctx context.Context) (<-chan Signal, error) {
	if m.signals == nil {
		m.signals = make(chan Signal)
	}
	return m.signals, nil
}

// queue is a Poster that runs posted work when drained.
type queue struct {
	work []func()
}

func (q *queue) post(fn func()) { q.work = append(q.work, fn) }

func (q *queue) drain() {
	for len(q.work) > 0 {
		fn := q.work[0]
		q.work = q.work[1:]
		fn()
	}
}

func TestModemDeviceConformance(t *testing.T) {
	q := &queue{}
	adaptertest.RunConformance(t, adaptertest.Harness{
		Name: "ofono",
		New: func(t *testing.T) adapter.Device {
			d := NewDevice(100, "/ril_0", &mockBus{autoReply: true}, q.post)
			d.SetProperties(map[string]interface{}{"Online": true, "Powered": true})
			return d
		},
		Settle: q.drain,
	})
}

func TestNameFromProperties(t *testing.T) {
	d := NewDevice(100, "/ril_0", nil, nil)
	assert.Equal(t, "unknown unknown", d.Name())

	d.SetProperties(map[string]interface{}{"Manufacturer": "Quectel", "Model": "EG25"})
	assert.Equal(t, "Quectel EG25", d.Name())
	assert.Equal(t, rfkill.TypeWWAN, d.Type())
	assert.False(t, d.HardBlocked())
	assert.False(t, d.Capabilities().Has(adapter.CapHardBlock))
}

func TestSoftFollowsOnline(t *testing.T) {
	d := NewDevice(100, "/ril_0", nil, nil)
	assert.False(t, d.SoftBlocked(), "no Online property yet")

	assert.True(t, d.PropertyChanged("Online", false))
	assert.True(t, d.SoftBlocked())
	assert.False(t, d.PropertyChanged("Online", false))
	assert.False(t, d.PropertyChanged("Model", "EG25"))
	assert.True(t, d.PropertyChanged("Online", true))
	assert.False(t, d.SoftBlocked())
}

func TestSetSoftBlockedCallsSetProperty(t *testing.T) {
	bus := &mockBus{}
	q := &queue{}
	d := NewDevice(100, "/ril_0", bus, q.post)

	var got []error
	d.SetSoftBlocked(true, func(err error) { got = append(got, err) })
	require.Len(t, bus.calls, 1)
	assert.Equal(t, "/ril_0", bus.calls[0].path)
	assert.Equal(t, "Online", bus.calls[0].name)
	assert.Equal(t, false, bus.calls[0].value)
	assert.Empty(t, got, "completion waits for the bus")

	bus.calls[0].done(nil)
	assert.Empty(t, got, "completion runs on the loop")
	q.drain()
	require.Len(t, got, 1)
	assert.NoError(t, got[0])
}

func TestSecondRequestWhilePendingIsInProgress(t *testing.T) {
	bus := &mockBus{}
	q := &queue{}
	d := NewDevice(100, "/ril_0", bus, q.post)

	var first, second error
	secondCalled := false
	d.SetSoftBlocked(true, func(err error) { first = err })
	d.SetSoftBlocked(false, func(err error) { secondCalled, second = true, err })

	require.True(t, secondCalled)
	assert.ErrorIs(t, second, adapter.ErrInProgress)
	assert.Len(t, bus.calls, 1, "second request never reaches the bus")

	bus.calls[0].done(nil)
	q.drain()
	assert.NoError(t, first)

	// The guard clears once the call resolves.
	d.SetSoftBlocked(false, nil)
	assert.Len(t, bus.calls, 2)
}

func TestRemoteErrorsKeepTheirKind(t *testing.T) {
	tests := []struct {
		name string
		want error
	}{
		{"org.ofono.Error.EmergencyActive", adapter.ErrEmergency},
		{"org.ofono.Error.InProgress", adapter.ErrInProgress},
		{"org.ofono.Error.Failed", adapter.ErrGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queue{}
			bus := &mockBus{autoReply: true, replyErr: &RemoteError{Name: tt.name}}
			d := NewDevice(100, "/ril_0", bus, q.post)

			var got error
			d.SetSoftBlocked(true, func(err error) { got = err })
			q.drain()
			assert.ErrorIs(t, got, tt.want)
			assert.Equal(t, tt.want, adapter.KindOf(got))
		})
	}
}

type mockRegistrar struct {
	added     []adapter.Device
	removed   []uint32
	refreshed []uint32
}

func (m *mockRegistrar) AddDevice(d adapter.Device) { m.added = append(m.added, d) }
func (m *mockRegistrar) RemoveDevice(index uint32)  { m.removed = append(m.removed, index) }
func (m *mockRegistrar) RefreshDevice(index uint32) { m.refreshed = append(m.refreshed, index) }

func TestWatcherRegistersPoweredModems(t *testing.T) {
	q := &queue{}
	reg := &mockRegistrar{}
	w := NewWatcher(&mockBus{}, q.post, reg, 100)

	w.modemAdded("/ril_0", map[string]interface{}{"Powered": true, "Online": false})
	w.modemAdded("/ril_1", map[string]interface{}{"Powered": false})
	w.modemAdded("/ril_0", map[string]interface{}{"Powered": true})

	require.Len(t, reg.added, 1)
	assert.Equal(t, uint32(100), reg.added[0].Index())
	assert.True(t, reg.added[0].SoftBlocked())

	w.propertyChanged("/ril_1", "Powered", true)
	require.Len(t, reg.added, 2)
	assert.Equal(t, uint32(101), reg.added[1].Index())

	w.propertyChanged("/ril_0", "Online", true)
	assert.Equal(t, []uint32{100}, reg.refreshed)
	w.propertyChanged("/ril_0", "Online", true)
	assert.Equal(t, []uint32{100}, reg.refreshed, "unchanged Online is not a refresh")

	w.propertyChanged("/ril_1", "Powered", false)
	assert.Equal(t, []uint32{101}, reg.removed)

	w.modemRemoved("/ril_0")
	assert.Equal(t, []uint32{101, 100}, reg.removed)
	w.modemRemoved("/ril_1")
	assert.Equal(t, []uint32{101, 100}, reg.removed, "unpowered modem was already dropped")
}

func TestWatcherRefreshesOnNameChange(t *testing.T) {
	reg := &mockRegistrar{}
	w := NewWatcher(&mockBus{}, (&queue{}).post, reg, 100)
	w.modemAdded("/ril_0", map[string]interface{}{"Powered": true, "Manufacturer": "Quectel"})
	w.modemAdded("/ril_1", map[string]interface{}{"Powered": false})

	w.propertyChanged("/ril_0", "Model", "EG25")
	assert.Equal(t, []uint32{100}, reg.refreshed)
	assert.Equal(t, "Quectel EG25", reg.added[0].Name())

	w.propertyChanged("/ril_0", "Model", "EG25")
	w.propertyChanged("/ril_0", "Revision", "1.0")
	w.propertyChanged("/ril_1", "Manufacturer", "Quectel")
	assert.Equal(t, []uint32{100}, reg.refreshed, "only a new name on a registered modem refreshes")
}

func TestWatcherRunPostsInitialModems(t *testing.T) {
	q := &queue{}
	reg := &mockRegistrar{}
	bus := &mockBus{
		modems:  []Modem{{Path: "/ril_0", Properties: map[string]interface{}{"Powered": true}}},
		signals: make(chan Signal),
	}
	w := NewWatcher(bus, q.post, reg, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	bus.signals <- Signal{Kind: SignalModemRemoved, Path: "/ril_0"}
	cancel()
	require.NoError(t, <-done)

	q.drain()
	require.Len(t, reg.added, 1)
	assert.Equal(t, []uint32{100}, reg.removed)
}
