package ofono

import (
	"context"
	"fmt"
	"log"

	"github.com/radio-control/rfkd/internal/adapter"
)

// Registrar receives modem devices as they become usable. Calls arrive on
// the arbitration loop.
type Registrar interface {
	AddDevice(d adapter.Device)
	RemoveDevice(index uint32)
	RefreshDevice(index uint32)
}

// Watcher tracks modems and registers a device for each powered one.
type Watcher struct {
	bus  Bus
	post adapter.Poster
	reg  Registrar

	next   uint32
	modems map[string]*trackedModem
}

type trackedModem struct {
	device     *Device
	registered bool
}

// NewWatcher returns a watcher that numbers devices from firstIndex upward.
func NewWatcher(bus Bus, post adapter.Poster, reg Registrar, firstIndex uint32) *Watcher {
	return &Watcher{
		bus:    bus,
		post:   post,
		reg:    reg,
		next:   firstIndex,
		modems: make(map[string]*trackedModem),
	}
}

// Run lists the current modems and follows bus signals until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	signals, err := w.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", ManagerInterface, err)
	}
	modems, err := w.bus.Modems()
	if err != nil {
		return err
	}
	for _, m := range modems {
		m := m
		w.post(func() { w.modemAdded(m.Path, m.Properties) })
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-signals:
			if !ok {
				return nil
			}
			w.post(func() { w.handle(s) })
		}
	}
}

func (w *Watcher) handle(s Signal) {
	switch s.Kind {
	case SignalModemAdded:
		w.modemAdded(s.Path, s.Properties)
	case SignalModemRemoved:
		w.modemRemoved(s.Path)
	case SignalPropertyChanged:
		w.propertyChanged(s.Path, s.Name, s.Value)
	}
}

func (w *Watcher) modemAdded(path string, props map[string]interface{}) {
	if _, ok := w.modems[path]; ok {
		return
	}
	d := NewDevice(w.next, path, w.bus, w.post)
	w.next++
	d.SetProperties(props)
	m := &trackedModem{device: d}
	w.modems[path] = m
	log.Printf("ofono: modem %s added as index %d", path, d.Index())
	w.syncPowered(m)
}

func (w *Watcher) modemRemoved(path string) {
	m, ok := w.modems[path]
	if !ok {
		return
	}
	delete(w.modems, path)
	if m.registered {
		w.reg.RemoveDevice(m.device.Index())
	}
	log.Printf("ofono: modem %s removed", path)
}

func (w *Watcher) propertyChanged(path, name string, value interface{}) {
	m, ok := w.modems[path]
	if !ok {
		return
	}
	oldName := m.device.Name()
	changed := m.device.PropertyChanged(name, value)
	if name == "Powered" {
		w.syncPowered(m)
		return
	}
	if (changed || m.device.Name() != oldName) && m.registered {
		w.reg.RefreshDevice(m.device.Index())
	}
}

func (w *Watcher) syncPowered(m *trackedModem) {
	powered := m.device.Powered()
	switch {
	case powered && !m.registered:
		m.registered = true
		log.Printf("ofono: %s powered, registering", m.device.Path())
		w.reg.AddDevice(m.device)
	case !powered && m.registered:
		m.registered = false
		log.Printf("ofono: %s unpowered, unregistering", m.device.Path())
		w.reg.RemoveDevice(m.device.Index())
	}
}
