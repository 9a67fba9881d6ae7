package arbitrator

import (
	"log"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/adapter/kernel"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// HandleEvent applies one event from the kernel control device.
func (a *Arbitrator) HandleEvent(ev rfkill.Event) {
	if a.debug {
		log.Printf("event: %s", ev)
	}
	if ev.Type.Valid() && a.ignored[ev.Type] {
		return
	}
	switch ev.Op {
	case rfkill.OpAdd:
		if !ev.Type.Concrete() {
			log.Printf("warning: ignoring ADD for device %d of unknown type %d", ev.Index, uint8(ev.Type))
			return
		}
		a.AddDevice(kernel.New(ev, a.control, a.attrs))
	case rfkill.OpChange:
		a.changeDevice(ev.Index, ev.Soft, ev.Hard)
	case rfkill.OpDel:
		a.RemoveDevice(ev.Index)
	}
}

// AddDevice registers d. A device whose index is already registered is
// ignored.
func (a *Arbitrator) AddDevice(d adapter.Device) {
	added, err := a.registry.Add(d)
	if err != nil {
		log.Printf("warning: %v", err)
		return
	}
	if !added {
		if a.debug {
			log.Printf("device %d already registered", d.Index())
		}
		return
	}
	log.Printf("added %s device %d (%s) %s", d.Type(), d.Index(), d.Name(), adapter.State(d))

	switch {
	case a.cfg.ForceSync:
		if !d.Platform() {
			a.SetBlockIndex(d.Index(), d.SoftBlocked(), nil)
		}
	case a.cfg.Persist:
		a.SetBlockIndex(d.Index(), a.store.PersistedSoft(d.Type()), nil)
	}

	a.notifier.DeviceAdded(adapter.Describe(d))
}

// RemoveDevice unregisters the device at index.
func (a *Arbitrator) RemoveDevice(index uint32) {
	d, ok := a.registry.Remove(index)
	if !ok {
		log.Printf("warning: no device with index %d in the list", index)
		return
	}
	log.Printf("removed %s device %d", d.Type(), index)
	a.notifier.DeviceRemoved(adapter.Describe(d))
}

// RefreshDevice recomputes the killswitch of a device whose backend changed
// state by itself.
func (a *Arbitrator) RefreshDevice(index uint32) {
	d, ok := a.registry.Refresh(index)
	if !ok {
		return
	}
	a.notifier.DeviceChanged(adapter.Describe(d))
}

func (a *Arbitrator) changeDevice(index uint32, soft, hard bool) {
	d, ok := a.registry.Get(index)
	if !ok {
		log.Printf("warning: no device with index %d in the list", index)
		return
	}
	oldHard := d.HardBlocked()

	if _, changed, _ := a.registry.Update(index, soft, hard); !changed {
		return
	}
	if a.debug {
		log.Printf("updating device %d to soft %t hard %t", index, soft, hard)
	}
	a.notifier.DeviceChanged(adapter.Describe(d))

	if a.cfg.ForceSync {
		switch {
		case hard && !soft:
			a.SetBlockIndex(index, true, nil)
		case !hard && oldHard:
			a.SetBlockIndex(index, false, nil)
		}
		return
	}
	a.store.SetPersistedSoft(d.Type(), soft)
}
