// Package driver implements the Device backed by loading and unloading a
// vendor WLAN driver. The driver being loaded is the only state there is:
// blocked means unloaded.
package driver

import (
	"fmt"
	"log"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Defaults for the single vendor WLAN device.
const (
	DefaultIndex = 200
	DefaultName  = "hybris_wifi"
)

// Loader controls the driver.
type Loader interface {
	Load() error
	Unload() error
	Loaded() bool
}

// Device is the vendor WLAN driver.
type Device struct {
	adapter.Base

	loader   Loader
	post     adapter.Poster
	onChange func()
	busy     bool
}

var _ adapter.Device = (*Device)(nil)

// New probes the driver once to seed the soft state. With a nil post,
// requests run inline on the caller.
func New(index uint32, name string, loader Loader, post adapter.Poster) *Device {
	if name == "" {
		name = DefaultName
	}
	return &Device{
		Base:   adapter.NewBase(index, rfkill.TypeWLAN, name, false, !loader.Loaded(), false),
		loader: loader,
		post:   post,
	}
}

// OnStateChanged sets the hook run when a request moved the probed state.
func (d *Device) OnStateChanged(fn func()) {
	d.onChange = fn
}

func (d *Device) Kind() adapter.Kind               { return adapter.KindDriver }
func (d *Device) Capabilities() adapter.Capability { return adapter.CapSoftBlock }

// UpdateStates ignores hard: the driver has no hardware switch.
func (d *Device) UpdateStates(soft, hard bool) bool {
	return d.Base.UpdateStates(soft, false)
}

// SetSoftBlocked unloads (blocked) or loads the driver, then re-probes. The
// reported soft state is the probe result; the returned error is the
// load or unload result.
func (d *Device) SetSoftBlocked(blocked bool, done adapter.Completion) {
	if d.busy {
		finish(done, adapter.NewError(adapter.ErrInProgress, d.where(), fmt.Errorf("driver operation running")))
		return
	}
	d.busy = true

	run := func() (bool, error) {
		var err error
		if blocked {
			err = d.loader.Unload()
		} else {
			err = d.loader.Load()
		}
		return !d.loader.Loaded(), err
	}
	apply := func(soft bool, err error) {
		d.busy = false
		prev := d.SoftBlocked()
		d.Base.UpdateStates(soft, false)
		if prev != soft && d.onChange != nil {
			d.onChange()
		}
		if err != nil {
			log.Printf("warning: driver: setting %s soft to %t: %v", d.Name(), blocked, err)
			finish(done, adapter.NewError(adapter.ErrGeneral, d.where(), err))
			return
		}
		log.Printf("driver: %s soft blocked set to %t", d.Name(), blocked)
		finish(done, nil)
	}

	if d.post == nil {
		apply(run())
		return
	}
	go func() {
		soft, err := run()
		d.post(func() { apply(soft, err) })
	}()
}

func (d *Device) where() string {
	return fmt.Sprintf("%s driver %s", d.Type(), d.Name())
}

func finish(done adapter.Completion, err error) {
	if done != nil {
		done(err)
	}
}
