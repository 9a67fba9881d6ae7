package arbitrator

import (
	"context"
	"fmt"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// FlightModeStatus is the flight-mode state as reported to clients.
type FlightModeStatus struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
}

// Service is a goroutine-safe front for an Arbitrator. Every call is posted
// to the loop and waits for its result or for ctx.
type Service struct {
	arb  *Arbitrator
	loop *Loop
}

// NewService wraps arb, which must only be driven through loop from now on.
func NewService(arb *Arbitrator, loop *Loop) *Service {
	return &Service{arb: arb, loop: loop}
}

// Post queues fn on the arbitration loop.
func (s *Service) Post(fn func()) {
	s.loop.Post(fn)
}

// Killswitches returns the state of every concrete type.
func (s *Service) Killswitches(ctx context.Context) ([]KillswitchInfo, error) {
	var out []KillswitchInfo
	if err := s.query(ctx, func() { out = s.arb.Killswitches() }); err != nil {
		return nil, err
	}
	return out, nil
}

// Killswitch returns the state of one type.
func (s *Service) Killswitch(ctx context.Context, t rfkill.RadioType) (KillswitchInfo, error) {
	var (
		out  KillswitchInfo
		lerr error
	)
	if err := s.query(ctx, func() { out, lerr = s.arb.Killswitch(t) }); err != nil {
		return KillswitchInfo{}, err
	}
	return out, lerr
}

// Devices returns every registered device.
func (s *Service) Devices(ctx context.Context) ([]adapter.Info, error) {
	var out []adapter.Info
	if err := s.query(ctx, func() { out = s.arb.Devices() }); err != nil {
		return nil, err
	}
	return out, nil
}

// Device returns one device by index.
func (s *Service) Device(ctx context.Context, index uint32) (adapter.Info, error) {
	var (
		out adapter.Info
		ok  bool
	)
	if err := s.query(ctx, func() { out, ok = s.arb.Device(index) }); err != nil {
		return adapter.Info{}, err
	}
	if !ok {
		return adapter.Info{}, fmt.Errorf("%w: device %d", ErrNotFound, index)
	}
	return out, nil
}

// FlightModeStatus reports the recorded flight-mode state.
func (s *Service) FlightModeStatus(ctx context.Context) (FlightModeStatus, error) {
	var out FlightModeStatus
	if err := s.query(ctx, func() {
		out = FlightModeStatus{
			Enabled: s.arb.FlightModeEnabled(),
			Running: s.arb.FlightModeRunning(),
		}
	}); err != nil {
		return FlightModeStatus{}, err
	}
	return out, nil
}

// SetBlock sets the soft block of a type and waits for the outcome.
func (s *Service) SetBlock(ctx context.Context, t rfkill.RadioType, blocked bool) error {
	if !t.Valid() {
		return fmt.Errorf("%w: radio type %d", ErrInvalidParameter, uint8(t))
	}
	return s.command(ctx, func(done adapter.Completion) { s.arb.SetBlock(t, blocked, done) })
}

// SetBlockIndex sets the soft block of one device and waits for the outcome.
func (s *Service) SetBlockIndex(ctx context.Context, index uint32, blocked bool) error {
	return s.command(ctx, func(done adapter.Completion) { s.arb.SetBlockIndex(index, blocked, done) })
}

// FlightMode enters or leaves flight mode and waits for the outcome.
func (s *Service) FlightMode(ctx context.Context, enabled bool) error {
	return s.command(ctx, func(done adapter.Completion) { s.arb.FlightMode(enabled, done) })
}

// query runs fn on the loop. Results written by fn may only be read when
// query returns nil.
func (s *Service) query(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	s.loop.Post(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// command starts fn on the loop. The operation is not cancelled when ctx
// ends; only the wait is abandoned.
func (s *Service) command(ctx context.Context, fn func(done adapter.Completion)) error {
	result := make(chan error, 1)
	s.loop.Post(func() {
		s.arb.origin = ctx
		fn(func(err error) { result <- err })
		s.arb.origin = nil
	})
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
