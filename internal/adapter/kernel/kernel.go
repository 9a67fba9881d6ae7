// Package kernel implements the Device backed by the kernel rfkill subsystem.
package kernel

import (
	"fmt"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Writer sends events to the kernel control device.
type Writer interface {
	Write(ev rfkill.Event) error
}

// Attributes looks up what the event feed does not carry.
type Attributes interface {
	Name(index uint32) string
	Platform(index uint32) bool
}

// Device is one kernel rfkill entry.
type Device struct {
	adapter.Base
	w Writer
}

var _ adapter.Device = (*Device)(nil)

// New builds a device from an ADD event.
func New(ev rfkill.Event, w Writer, attrs Attributes) *Device {
	var (
		name     string
		platform bool
	)
	if attrs != nil {
		name = attrs.Name(ev.Index)
		platform = attrs.Platform(ev.Index)
	}
	if name == "" {
		name = fmt.Sprintf("rfkill%d", ev.Index)
	}
	return &Device{
		Base: adapter.NewBase(ev.Index, ev.Type, name, platform, ev.Soft, ev.Hard),
		w:    w,
	}
}

func (d *Device) Kind() adapter.Kind { return adapter.KindKernel }

func (d *Device) Capabilities() adapter.Capability {
	return adapter.CapHardBlock | adapter.CapSoftBlock
}

// SetSoftBlocked writes a CHANGE_ALL event for the device's type. The write
// does not wait for the kernel; the resulting CHANGE events update the flags.
func (d *Device) SetSoftBlocked(blocked bool, done adapter.Completion) {
	err := d.write(blocked)
	if done != nil {
		done(err)
	}
}

func (d *Device) write(blocked bool) error {
	context := fmt.Sprintf("%s device %d", d.Type(), d.Index())
	if d.w == nil {
		return adapter.NewError(adapter.ErrGeneral, context, fmt.Errorf("control device not open"))
	}
	if err := d.w.Write(rfkill.BlockEvent(d.Type(), blocked)); err != nil {
		return adapter.NewError(adapter.ErrGeneral, context, err)
	}
	return nil
}
