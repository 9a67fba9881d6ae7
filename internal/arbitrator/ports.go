package arbitrator

import (
	"context"
	"errors"
	"time"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Store is the persisted per-type state.
type Store interface {
	PersistedSoft(t rfkill.RadioType) bool
	SetPersistedSoft(t rfkill.RadioType, soft bool)
	PrevSoft(t rfkill.RadioType) bool
	SetPrevSoft(t rfkill.RadioType, prev bool)
}

// Notifier receives outward notifications. Calls arrive on the loop and must
// not block.
type Notifier interface {
	DeviceAdded(info adapter.Info)
	DeviceRemoved(info adapter.Info)
	DeviceChanged(info adapter.Info)
	StateChanged(t rfkill.RadioType, state rfkill.KillswitchState)
	FlightModeChanged(enabled bool)
}

// AuditLogger records commands.
type AuditLogger interface {
	LogAction(ctx context.Context, action, target, result string, latency time.Duration)
}

// Errors returned by Service lookups.
var (
	ErrNotFound         = errors.New("NOT_FOUND")
	ErrInvalidParameter = errors.New("BAD_REQUEST")
)

// KillswitchInfo is the aggregate state of one radio type.
type KillswitchInfo struct {
	Type     rfkill.RadioType       `json:"-"`
	TypeName string                 `json:"type"`
	State    rfkill.KillswitchState `json:"-"`
	StateStr string                 `json:"state"`
	Devices  int                    `json:"devices"`
}

type nopNotifier struct{}

func (nopNotifier) DeviceAdded(adapter.Info)                              {}
func (nopNotifier) DeviceRemoved(adapter.Info)                            {}
func (nopNotifier) DeviceChanged(adapter.Info)                            {}
func (nopNotifier) StateChanged(rfkill.RadioType, rfkill.KillswitchState) {}
func (nopNotifier) FlightModeChanged(bool)                                {}
