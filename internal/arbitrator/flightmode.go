package arbitrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// flightMode is one flight-mode operation. Types are handled in ascending
// order and at most one killswitch request is outstanding.
type flightMode struct {
	block   bool
	types   []rfkill.RadioType
	cursor  int
	initial [rfkill.NumTypes]rfkill.KillswitchState
	final   [rfkill.NumTypes]bool
	done    adapter.Completion
	ctx     context.Context
	start   time.Time
}

// FlightMode blocks every radio, or restores each radio to the soft state it
// had before flight mode was entered. If a type fails, the types already
// switched are set back to their initial state and done receives a
// *FlightModeError naming the failed type.
func (a *Arbitrator) FlightMode(block bool, done adapter.Completion) {
	if a.flight != nil {
		log.Printf("error: flight mode requested while another flight mode operation is running")
		complete(done, adapter.NewError(adapter.ErrInProgress, rfkill.TypeAll.String(),
			fmt.Errorf("flight mode already running")))
		return
	}

	if block {
		log.Printf("Flight mode on")
	} else {
		log.Printf("Flight mode off")
	}
	fm := &flightMode{
		block: block,
		types: rfkill.Types(),
		done:  done,
		ctx:   a.commandContext(),
		start: time.Now(),
	}
	for i := range fm.initial {
		fm.initial[i] = rfkill.StateNoAdapter
	}
	a.flight = fm
	a.stepFlightMode(fm)
}

// stepFlightMode issues the request for the next type with an adapter, or
// finishes when none is left.
func (a *Arbitrator) stepFlightMode(fm *flightMode) {
	for fm.cursor < len(fm.types) {
		t := fm.types[fm.cursor]
		ks := a.killswitches[t]
		fm.initial[t] = ks.State()
		fm.cursor++

		if fm.initial[t] == rfkill.StateNoAdapter {
			fm.final[t] = fm.block
			continue
		}

		desired := fm.block || a.store.PrevSoft(t)
		fm.final[t] = desired
		ks.SetSoftwareBlocked(desired, func(err error) {
			a.flightModeStepDone(fm, t, err)
		})
		return
	}
	a.finishFlightMode(fm)
}

func (a *Arbitrator) flightModeStepDone(fm *flightMode, t rfkill.RadioType, err error) {
	if a.flight != fm {
		return
	}
	if err != nil {
		a.rollbackFlightMode(fm, t, err)
		return
	}
	a.stepFlightMode(fm)
}

// rollbackFlightMode puts every type handled before failed back to its
// initial state. Compensating requests are not awaited.
func (a *Arbitrator) rollbackFlightMode(fm *flightMode, failed rfkill.RadioType, err error) {
	log.Printf("warning: flight mode: %s failed: %v, rolling back", failed, err)

	for _, t := range fm.types[:fm.cursor-1] {
		initial := fm.initial[t]
		if initial == rfkill.StateNoAdapter {
			// Nothing was written for t, its persisted value stands.
			continue
		}
		a.killswitches[t].SetSoftwareBlocked(initial.Blocked(), func(err error) {
			if err != nil {
				log.Printf("warning: flight mode: rollback of %s failed: %v", t, err)
			}
		})
	}

	a.flight = nil
	ferr := &FlightModeError{Type: failed, Err: err}
	a.logAudit(fm.ctx, "flight_mode", rfkill.TypeAll.String(), fm.block, ferr, time.Since(fm.start))
	complete(fm.done, ferr)
}

// finishFlightMode records the outcome once every type is switched.
func (a *Arbitrator) finishFlightMode(fm *flightMode) {
	for _, t := range fm.types {
		a.store.SetPrevSoft(t, fm.block && fm.initial[t] == rfkill.StateSoftBlocked)
		a.store.SetPersistedSoft(t, fm.final[t])
	}
	a.store.SetPersistedSoft(rfkill.TypeAll, fm.block)

	a.flight = nil
	a.notifier.FlightModeChanged(fm.block)
	a.logAudit(fm.ctx, "flight_mode", rfkill.TypeAll.String(), fm.block, nil, time.Since(fm.start))
	complete(fm.done, nil)
}
