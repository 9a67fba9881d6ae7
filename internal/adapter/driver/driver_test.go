package driver

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/adaptertest"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// mockLoader flips loaded on success. probe, when set, overrides Loaded.
type mockLoader struct {
	mu        sync.Mutex
	loaded    bool
	loadErr   error
	unloadErr error
	probe     func() bool
	loads     int
	unloads   int
}

func (m *mockLoader) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = true
	return nil
}

func (m *mockLoader) Unload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloads++
	if m.unloadErr != nil {
		return m.unloadErr
	}
	m.loaded = false
	return nil
}

func (m *mockLoader) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.probe != nil {
		return m.probe()
	}
	return m.loaded
}

func TestDriverDeviceConformance(t *testing.T) {
	adaptertest.RunConformance(t, adaptertest.Harness{
		Name: "driver",
		New: func(t *testing.T) adapter.Device {
			return New(DefaultIndex, "", &mockLoader{loaded: true}, nil)
		},
	})
}

func TestIdentity(t *testing.T) {
	d := New(DefaultIndex, "", &mockLoader{}, nil)
	assert.Equal(t, uint32(200), d.Index())
	assert.Equal(t, rfkill.TypeWLAN, d.Type())
	assert.Equal(t, "hybris_wifi", d.Name())
	assert.True(t, d.SoftBlocked(), "unloaded driver reads as blocked")
	assert.Equal(t, adapter.KindDriver, d.Kind())
}

func TestBlockUnloadsAndUnblockLoads(t *testing.T) {
	l := &mockLoader{loaded: true}
	d := New(DefaultIndex, "", l, nil)
	changes := 0
	d.OnStateChanged(func() { changes++ })

	var got error
	d.SetSoftBlocked(true, func(err error) { got = err })
	assert.NoError(t, got)
	assert.Equal(t, 1, l.unloads)
	assert.True(t, d.SoftBlocked())
	assert.Equal(t, 1, changes)

	d.SetSoftBlocked(false, func(err error) { got = err })
	assert.NoError(t, got)
	assert.Equal(t, 1, l.loads)
	assert.False(t, d.SoftBlocked())
	assert.Equal(t, 2, changes)

	d.SetSoftBlocked(false, nil)
	assert.Equal(t, 2, changes, "no change when the probe agrees")
}

func TestProbeWinsOverRequest(t *testing.T) {
	// The load call succeeds but the driver never shows up.
	l := &mockLoader{probe: func() bool { return false }}
	d := New(DefaultIndex, "", l, nil)

	var got error
	d.SetSoftBlocked(false, func(err error) { got = err })
	assert.NoError(t, got)
	assert.True(t, d.SoftBlocked(), "state follows the probe, not the request")
}

func TestLoadFailureReportedIndependently(t *testing.T) {
	boom := errors.New("EPERM")
	loaded := false
	l := &mockLoader{loadErr: boom, probe: func() bool { return loaded }}
	d := New(DefaultIndex, "", l, nil)
	// Someone else loaded it meanwhile: the probe sees it, the call failed.
	loaded = true

	var got error
	d.SetSoftBlocked(false, func(err error) { got = err })
	assert.ErrorIs(t, got, adapter.ErrGeneral)
	assert.ErrorIs(t, got, boom)
	assert.False(t, d.SoftBlocked())
}

func TestRequestRunsOffLoopWhenPosterSet(t *testing.T) {
	l := &mockLoader{loaded: true}
	posted := make(chan func(), 1)
	d := New(DefaultIndex, "", l, func(fn func()) { posted <- fn })

	var got []error
	d.SetSoftBlocked(true, func(err error) { got = append(got, err) })

	var second error
	d.SetSoftBlocked(false, func(err error) { second = err })
	assert.ErrorIs(t, second, adapter.ErrInProgress)

	fn := <-posted
	assert.Empty(t, got)
	fn()
	require.Len(t, got, 1)
	assert.NoError(t, got[0])
	assert.True(t, d.SoftBlocked())
}

func TestModuleLoaderProbe(t *testing.T) {
	root := t.TempDir()
	m := &ModuleLoader{Name: "wlan-vendor", Root: root}
	assert.False(t, m.Loaded())

	require.NoError(t, os.Mkdir(filepath.Join(root, "wlan_vendor"), 0o755))
	assert.True(t, m.Loaded())
}

func TestModuleLoaderLoadMissingFile(t *testing.T) {
	m := &ModuleLoader{Name: "wlan", Path: filepath.Join(t.TempDir(), "missing.ko")}
	assert.Error(t, m.Load())
}
