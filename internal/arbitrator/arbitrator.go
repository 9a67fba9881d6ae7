package arbitrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/adapter/kernel"
	"github.com/radio-control/rfkd/internal/config"
	"github.com/radio-control/rfkd/internal/killswitch"
	"github.com/radio-control/rfkd/internal/radio"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Arbitrator owns the registry, the killswitches and the flight-mode state.
// It is not safe for concurrent use; drive it from a Loop.
type Arbitrator struct {
	cfg          config.KillswitchConfig
	registry     *radio.Registry
	killswitches [rfkill.NumTypes]*killswitch.Killswitch
	store        Store
	notifier     Notifier
	auditLogger  AuditLogger

	control kernel.Writer
	attrs   kernel.Attributes
	ignored [rfkill.NumTypes]bool
	debug   bool

	flight *flightMode

	// origin is the context of the command being started, set by Service.
	origin context.Context
}

// New creates an arbitrator with one empty killswitch per concrete type.
func New(cfg config.KillswitchConfig, store Store, notifier Notifier) *Arbitrator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	a := &Arbitrator{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
	}
	for _, t := range rfkill.Types() {
		a.killswitches[t] = killswitch.New(t, a.stateChanged)
	}
	a.registry = radio.NewRegistry(a.killswitch)
	return a
}

// SetAuditLogger sets the audit logger for commands.
func (a *Arbitrator) SetAuditLogger(l AuditLogger) {
	a.auditLogger = l
}

// SetKernel sets the control device and attribute source used for kernel
// devices.
func (a *Arbitrator) SetKernel(w kernel.Writer, attrs kernel.Attributes) {
	a.control = w
	a.attrs = attrs
}

// IgnoreKernelType drops kernel events of t, for a type another backend owns.
func (a *Arbitrator) IgnoreKernelType(t rfkill.RadioType) {
	if t.Valid() {
		a.ignored[t] = true
	}
}

// SetDebug turns on per-event logging.
func (a *Arbitrator) SetDebug(on bool) {
	a.debug = on
}

func (a *Arbitrator) killswitch(t rfkill.RadioType) *killswitch.Killswitch {
	if !t.Concrete() {
		return nil
	}
	return a.killswitches[t]
}

// State returns the aggregate state of t. ALL reports WLAN.
func (a *Arbitrator) State(t rfkill.RadioType) (rfkill.KillswitchState, error) {
	if t == rfkill.TypeAll {
		t = rfkill.TypeWLAN
	}
	ks := a.killswitch(t)
	if ks == nil {
		return rfkill.StateNoAdapter, fmt.Errorf("%w: radio type %d", ErrInvalidParameter, uint8(t))
	}
	return ks.State(), nil
}

// Killswitch describes the killswitch of t. ALL reports the WLAN state and
// the total device count.
func (a *Arbitrator) Killswitch(t rfkill.RadioType) (KillswitchInfo, error) {
	state, err := a.State(t)
	if err != nil {
		return KillswitchInfo{}, err
	}
	info := KillswitchInfo{
		Type:     t,
		TypeName: t.String(),
		State:    state,
		StateStr: state.String(),
	}
	if t == rfkill.TypeAll {
		info.Devices = a.registry.Len()
	} else {
		info.Devices = a.killswitches[t].Len()
	}
	return info, nil
}

// Killswitches describes every concrete type.
func (a *Arbitrator) Killswitches() []KillswitchInfo {
	out := make([]KillswitchInfo, 0, rfkill.NumTypes-1)
	for _, t := range rfkill.Types() {
		info, _ := a.Killswitch(t)
		out = append(out, info)
	}
	return out
}

// Devices describes every registered device, ordered by index.
func (a *Arbitrator) Devices() []adapter.Info {
	devs := a.registry.List()
	out := make([]adapter.Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, adapter.Describe(d))
	}
	return out
}

// Device describes the device at index.
func (a *Arbitrator) Device(index uint32) (adapter.Info, bool) {
	d, ok := a.registry.Get(index)
	if !ok {
		return adapter.Info{}, false
	}
	return adapter.Describe(d), true
}

// FlightModeEnabled reports the flight-mode state last recorded.
func (a *Arbitrator) FlightModeEnabled() bool {
	return a.store.PersistedSoft(rfkill.TypeAll)
}

// FlightModeRunning reports whether a flight-mode operation is in flight.
func (a *Arbitrator) FlightModeRunning() bool {
	return a.flight != nil
}

// SetBlock sets the soft block of every device of t. ALL runs flight mode.
func (a *Arbitrator) SetBlock(t rfkill.RadioType, blocked bool, done adapter.Completion) {
	if t == rfkill.TypeAll {
		a.FlightMode(blocked, done)
		return
	}
	ks := a.killswitch(t)
	if ks == nil {
		complete(done, adapter.NewError(adapter.ErrGeneral, t.String(), fmt.Errorf("unknown radio type")))
		return
	}

	log.Printf("Setting %s devices to %s", t, blockedString(blocked))
	ctx, start := a.commandContext(), time.Now()
	ks.SetSoftwareBlocked(blocked, func(err error) {
		a.logAudit(ctx, "set_block", t.String(), blocked, err, time.Since(start))
		complete(done, err)
	})
}

// SetBlockIndex sets the soft block of one device, bypassing its killswitch.
func (a *Arbitrator) SetBlockIndex(index uint32, blocked bool, done adapter.Completion) {
	target := fmt.Sprintf("device %d", index)
	d, ok := a.registry.Get(index)
	if !ok {
		log.Printf("warning: block index: no device with index %d", index)
		complete(done, adapter.NewError(adapter.ErrGeneral, target, ErrNotFound))
		return
	}

	log.Printf("Setting device %d (%s) to %s", index, d.Type(), blockedString(blocked))
	ctx, start := a.commandContext(), time.Now()
	d.SetSoftBlocked(blocked, func(err error) {
		a.logAudit(ctx, "set_block_index", target, blocked, err, time.Since(start))
		complete(done, err)
	})
}

// Restore applies the persisted soft state of every type. It is run once
// after startup enumeration when persist is enabled.
func (a *Arbitrator) Restore() {
	if !a.cfg.Persist {
		return
	}
	for _, t := range rfkill.Types() {
		a.SetBlock(t, a.store.PersistedSoft(t), nil)
	}
}

func (a *Arbitrator) stateChanged(t rfkill.RadioType, state rfkill.KillswitchState) {
	a.notifier.StateChanged(t, state)
}

// commandContext returns the context a command was issued with, detached from
// its cancellation so it can outlive the request.
func (a *Arbitrator) commandContext() context.Context {
	if a.origin == nil {
		return context.Background()
	}
	return context.WithoutCancel(a.origin)
}

func (a *Arbitrator) logAudit(ctx context.Context, action, target string, blocked bool, err error, latency time.Duration) {
	if a.auditLogger == nil {
		return
	}
	result := "blocked=false: SUCCESS"
	if blocked {
		result = "blocked=true: SUCCESS"
	}
	if err != nil {
		result = fmt.Sprintf("blocked=%t: %v", blocked, adapter.KindOf(err))
	}
	a.auditLogger.LogAction(ctx, action, target, result, latency)
}

func complete(done adapter.Completion, err error) {
	if done != nil {
		done(err)
	}
}

func blockedString(blocked bool) string {
	if blocked {
		return "blocked"
	}
	return "unblocked"
}
