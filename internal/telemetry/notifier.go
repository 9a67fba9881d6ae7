package telemetry

import (
	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Event types published by the hub.
const (
	EventDeviceAdded   = "device-added"
	EventDeviceRemoved = "device-removed"
	EventDeviceChanged = "device-changed"
	EventStateChanged  = "state-changed"
	EventFlightMode    = "flight-mode"
)

func deviceData(info adapter.Info) map[string]interface{} {
	return map[string]interface{}{
		"index":    info.Index,
		"type":     info.TypeName,
		"name":     info.Name,
		"kind":     info.Kind,
		"soft":     info.Soft,
		"hard":     info.Hard,
		"platform": info.Platform,
		"state":    info.StateStr,
	}
}

// DeviceAdded publishes a device-added event.
func (h *Hub) DeviceAdded(info adapter.Info) {
	h.Publish(Event{Type: EventDeviceAdded, Topic: info.TypeName, Data: deviceData(info)})
}

// DeviceRemoved publishes a device-removed event.
func (h *Hub) DeviceRemoved(info adapter.Info) {
	h.Publish(Event{Type: EventDeviceRemoved, Topic: info.TypeName, Data: deviceData(info)})
}

// DeviceChanged publishes a device-changed event.
func (h *Hub) DeviceChanged(info adapter.Info) {
	h.Publish(Event{Type: EventDeviceChanged, Topic: info.TypeName, Data: deviceData(info)})
}

// StateChanged publishes the new aggregate state of a radio type.
func (h *Hub) StateChanged(t rfkill.RadioType, state rfkill.KillswitchState) {
	h.Publish(Event{
		Type:  EventStateChanged,
		Topic: t.String(),
		Data: map[string]interface{}{
			"type":  t.String(),
			"state": state.String(),
		},
	})
}

// FlightModeChanged publishes a completed flight-mode change.
func (h *Hub) FlightModeChanged(enabled bool) {
	h.Publish(Event{
		Type: EventFlightMode,
		Data: map[string]interface{}{"enabled": enabled},
	})
}
