package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/radio-control/rfkd/internal/adapter/driver"
	"github.com/radio-control/rfkd/internal/adapter/ofono"
	"github.com/radio-control/rfkd/internal/api"
	"github.com/radio-control/rfkd/internal/arbitrator"
	"github.com/radio-control/rfkd/internal/audit"
	"github.com/radio-control/rfkd/internal/config"
	"github.com/radio-control/rfkd/internal/persist"
	"github.com/radio-control/rfkd/internal/rfkill"
	"github.com/radio-control/rfkd/internal/telemetry"
)

// ControlDevice is the kernel rfkill control device.
type ControlDevice interface {
	DisableInputHandler() error
	Enumerate() ([]rfkill.Event, error)
	Watch(ctx context.Context, fn func(rfkill.Event)) error
	Write(ev rfkill.Event) error
	Close() error
}

// Daemon owns every long-lived component.
type Daemon struct {
	cfg *config.Config

	control ControlDevice
	bus     ofono.Bus
	loader  driver.Loader

	loop     *arbitrator.Loop
	arb      *arbitrator.Arbitrator
	svc      *arbitrator.Service
	hub      *telemetry.Hub
	auditLog *audit.Logger
	server   *api.Server

	closers     []io.Closer
	driverTimer *time.Timer
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	serverErr   chan error
	ready       chan struct{}
}

// New returns a daemon for cfg. Backends not set explicitly are opened from
// the configuration by Start.
func New(cfg *config.Config) *Daemon {
	return &Daemon{
		cfg:       cfg,
		serverErr: make(chan error, 1),
		ready:     make(chan struct{}),
	}
}

// SetControl replaces the kernel control device.
func (d *Daemon) SetControl(c ControlDevice) { d.control = c }

// SetModemBus replaces the telephony bus connection.
func (d *Daemon) SetModemBus(b ofono.Bus) { d.bus = b }

// SetDriverLoader replaces the vendor driver loader.
func (d *Daemon) SetDriverLoader(l driver.Loader) { d.loader = l }

// Ready is closed once Start has brought every component up.
func (d *Daemon) Ready() <-chan struct{} { return d.ready }

// Service returns the goroutine-safe arbitrator front end. It is nil until
// Ready is closed.
func (d *Daemon) Service() *arbitrator.Service { return d.svc }

// Hub returns the telemetry hub. It is nil until Ready is closed.
func (d *Daemon) Hub() *telemetry.Hub { return d.hub }

// Start brings every component up and returns once the arbitration loop is
// running.
func (d *Daemon) Start(ctx context.Context) error {
	cfg := d.cfg
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ctx, d.cancel = context.WithCancel(ctx)

	// Step 1: persisted state
	store := persist.Open(cfg.State.File, cfg.Killswitch.StrictFlightMode)
	log.Printf("State file %s", cfg.State.File)

	// Step 2: telemetry hub and arbitrator
	d.hub = telemetry.NewHub(cfg.Telemetry)
	d.arb = arbitrator.New(cfg.Killswitch, store, d.hub)
	d.arb.SetDebug(cfg.Log.Debug)
	d.loop = arbitrator.NewLoop()
	d.svc = arbitrator.NewService(d.arb, d.loop)
	d.hub.SetSnapshot(d.snapshot)

	// Step 3: audit trail
	if auditLog, err := audit.NewLogger(cfg.Audit); err != nil {
		log.Printf("warning: audit disabled: %v", err)
	} else {
		d.auditLog = auditLog
		d.closers = append(d.closers, auditLog)
		d.arb.SetAuditLogger(auditLog)
	}

	// Step 4: kernel control device and initial devices
	if cfg.Driver.Enabled {
		d.arb.IgnoreKernelType(rfkill.TypeWLAN)
	}
	d.openControl()
	if d.control != nil {
		events, err := d.control.Enumerate()
		if err != nil {
			log.Printf("warning: enumerate %s: %v", cfg.Kernel.ControlDevice, err)
		}
		for _, ev := range events {
			d.arb.HandleEvent(ev)
		}
	}

	// Step 5: arbitration loop; the arbitrator is only touched from it now
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop.Run(ctx)
	}()

	// Step 6: modem backend
	d.startModem(ctx)

	// Step 7: vendor driver backend, after its start delay
	if cfg.Driver.Enabled {
		d.scheduleDriver()
	}

	// Step 8: kernel events
	if d.control != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			err := d.control.Watch(ctx, func(ev rfkill.Event) {
				d.loop.Post(func() { d.arb.HandleEvent(ev) })
			})
			if err != nil {
				log.Printf("warning: kernel event watch ended: %v", err)
			}
		}()
	}

	// Step 9: restore persisted state
	d.loop.Post(d.arb.Restore)

	// Step 10: control API
	if cfg.API.Enabled {
		d.server = api.NewServer(d.svc, d.hub, cfg.Killswitch, cfg.API)
		go func() {
			log.Printf("Starting control API on %s", cfg.API.Listen)
			if err := d.server.Start(cfg.API.Listen); err != nil {
				d.serverErr <- err
			}
		}()
	}

	log.Printf("rfkd started")
	close(d.ready)
	return nil
}

// Run starts the daemon and blocks until ctx is done or the API fails.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-d.serverErr:
		log.Printf("Server error: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(runErr, d.Stop(shutdownCtx))
}

// Stop shuts every component down. Operations still in flight on backends
// are abandoned.
func (d *Daemon) Stop(ctx context.Context) error {
	var errs []error
	// Event streams never go idle; end them before the server drains.
	if d.hub != nil {
		d.hub.Stop()
	}
	if d.server != nil {
		if err := d.server.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if d.driverTimer != nil {
		d.driverTimer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()

	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	log.Printf("rfkd stopped")
	return errors.Join(errs...)
}

func (d *Daemon) openControl() {
	if d.control == nil {
		c, err := rfkill.Open(d.cfg.Kernel.ControlDevice)
		if err != nil {
			log.Printf("warning: %v; continuing without kernel devices", err)
			return
		}
		d.control = c
	}
	d.closers = append(d.closers, d.control)

	if err := d.control.DisableInputHandler(); err != nil {
		log.Printf("warning: could not disable the kernel rfkill input handler: %v", err)
	}
	d.arb.SetKernel(d.control, rfkill.Sysfs{Root: d.cfg.Kernel.SysfsRoot})
}

func (d *Daemon) startModem(ctx context.Context) {
	if !d.cfg.Modem.Enabled {
		return
	}
	if d.bus == nil {
		bus, err := ofono.ConnectBus(d.cfg.Modem.Bus, d.cfg.Modem.Service)
		if err != nil {
			log.Printf("warning: modem backend disabled: %v", err)
			return
		}
		d.bus = bus
		d.closers = append(d.closers, bus)
	}

	w := ofono.NewWatcher(d.bus, d.loop.Post, d.arb, d.cfg.Modem.FirstIndex)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := w.Run(ctx); err != nil {
			log.Printf("warning: modem watcher stopped: %v", err)
		}
	}()
}

func (d *Daemon) scheduleDriver() {
	cfg := d.cfg.Driver
	loader := d.loader
	if loader == nil {
		loader = &driver.ModuleLoader{
			Name:   cfg.Module,
			Path:   cfg.Path,
			Params: cfg.Params,
			Root:   cfg.ModuleRoot,
		}
	}

	d.driverTimer = time.AfterFunc(cfg.StartDelay, func() {
		d.loop.Post(func() {
			dev := driver.New(cfg.Index, cfg.Name, loader, d.loop.Post)
			dev.OnStateChanged(func() { d.arb.RefreshDevice(cfg.Index) })
			d.arb.AddDevice(dev)
		})
	})
}

func (d *Daemon) snapshot(ctx context.Context) (map[string]interface{}, error) {
	killswitches, err := d.svc.Killswitches(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	devices, err := d.svc.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	flight, err := d.svc.FlightModeStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return map[string]interface{}{
		"killswitches": killswitches,
		"devices":      devices,
		"flightMode":   flight.Enabled,
	}, nil
}
