package ofono

import (
	"fmt"
	"log"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Device is one oFono modem. It is always WWAN and has no hardware switch.
// All methods run on the arbitration loop.
type Device struct {
	adapter.Base

	path    string
	bus     Bus
	post    adapter.Poster
	props   map[string]interface{}
	pending bool
}

var _ adapter.Device = (*Device)(nil)

// NewDevice returns a modem device with a synthesized index. post hands bus
// completions back to the loop.
func NewDevice(index uint32, path string, bus Bus, post adapter.Poster) *Device {
	return &Device{
		Base:  adapter.NewBase(index, rfkill.TypeWWAN, "", false, false, false),
		path:  path,
		bus:   bus,
		post:  post,
		props: make(map[string]interface{}),
	}
}

// Path returns the modem's object path.
func (d *Device) Path() string { return d.path }

func (d *Device) Kind() adapter.Kind               { return adapter.KindModem }
func (d *Device) Capabilities() adapter.Capability { return adapter.CapSoftBlock }

// Name is "<Manufacturer> <Model>" from the property cache.
func (d *Device) Name() string {
	return fmt.Sprintf("%s %s", d.stringProp("Manufacturer"), d.stringProp("Model"))
}

// SoftBlocked is the inverse of the cached Online property. A modem whose
// properties have not arrived yet reads as unblocked.
func (d *Device) SoftBlocked() bool {
	online, ok := d.props["Online"].(bool)
	return ok && !online
}

func (d *Device) HardBlocked() bool { return false }

// Powered reports the cached Powered property.
func (d *Device) Powered() bool {
	powered, _ := d.props["Powered"].(bool)
	return powered
}

// UpdateStates folds an observed soft value into the cache. Modems have no
// hardware switch, so hard is ignored.
func (d *Device) UpdateStates(soft, hard bool) bool {
	if d.SoftBlocked() == soft {
		return false
	}
	d.props["Online"] = !soft
	return true
}

// SetProperties replaces the cache with a fresh property dump.
func (d *Device) SetProperties(props map[string]interface{}) {
	d.props = make(map[string]interface{}, len(props))
	for k, v := range props {
		d.props[k] = v
	}
}

// PropertyChanged updates one cached property and reports whether the soft
// state moved.
func (d *Device) PropertyChanged(name string, value interface{}) bool {
	before := d.SoftBlocked()
	d.props[name] = value
	return name == "Online" && d.SoftBlocked() != before
}

// SetSoftBlocked sets Online to !blocked. A second request while one is
// outstanding fails with ErrInProgress.
func (d *Device) SetSoftBlocked(blocked bool, done adapter.Completion) {
	where := fmt.Sprintf("modem %s", d.path)
	if d.pending {
		log.Printf("ofono: %s: request pending, not setting WWAN", d.path)
		complete(done, adapter.NewError(adapter.ErrInProgress, where, fmt.Errorf("waiting for previous Online change")))
		return
	}
	if d.bus == nil {
		complete(done, adapter.NewError(adapter.ErrGeneral, where, fmt.Errorf("bus not ready")))
		return
	}

	log.Printf("ofono: %s: setting WWAN to blocked=%t", d.path, blocked)
	d.pending = true
	d.bus.SetModemProperty(d.path, "Online", !blocked, func(err error) {
		d.post(func() {
			d.pending = false
			if err != nil {
				log.Printf("warning: ofono: could not set Online on %s: %v", d.path, err)
				complete(done, adapter.NormalizeRemoteError(remoteName(err), where, err))
				return
			}
			complete(done, nil)
		})
	})
}

func (d *Device) stringProp(name string) string {
	if s, ok := d.props[name].(string); ok && s != "" {
		return s
	}
	return "unknown"
}

func complete(done adapter.Completion, err error) {
	if done != nil {
		done(err)
	}
}
