package api

import (
	"context"
	"net/http"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/arbitrator"
	"github.com/radio-control/rfkd/internal/rfkill"
	"github.com/radio-control/rfkd/internal/telemetry"
)

// KillswitchPort is what the API needs from the arbitrator.
type KillswitchPort interface {
	Killswitches(ctx context.Context) ([]arbitrator.KillswitchInfo, error)
	Killswitch(ctx context.Context, t rfkill.RadioType) (arbitrator.KillswitchInfo, error)
	Devices(ctx context.Context) ([]adapter.Info, error)
	Device(ctx context.Context, index uint32) (adapter.Info, error)
	FlightModeStatus(ctx context.Context) (arbitrator.FlightModeStatus, error)
	SetBlock(ctx context.Context, t rfkill.RadioType, blocked bool) error
	SetBlockIndex(ctx context.Context, index uint32, blocked bool) error
	FlightMode(ctx context.Context, enabled bool) error
}

// TelemetryPort is what the API needs from the telemetry hub.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

var (
	_ KillswitchPort = (*arbitrator.Service)(nil)
	_ TelemetryPort  = (*telemetry.Hub)(nil)
)
