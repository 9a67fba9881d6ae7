// Package adaptertest provides the contract checks every Device backend must pass.
package adaptertest

import (
	"fmt"
	"testing"
	"time"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/rfkill"
)

// Harness describes how to build and drive one backend under test.
type Harness struct {
	// Name labels the report.
	Name string
	// New returns a fresh device in the unblocked state.
	New func(t *testing.T) adapter.Device
	// Settle runs completions that the backend posted elsewhere. Nil for
	// backends that complete inline.
	Settle func()
}

// ConformanceResult is the outcome of one check.
type ConformanceResult struct {
	TestName string
	Passed   bool
	Error    string
	Duration time.Duration
}

// ConformanceReport collects every check for one backend.
type ConformanceReport struct {
	AdapterName   string
	Results       []ConformanceResult
	OverallPassed bool
	Duration      time.Duration
}

func (r *ConformanceReport) add(name string, start time.Time, err error) {
	res := ConformanceResult{TestName: name, Passed: err == nil, Duration: time.Since(start)}
	if err != nil {
		res.Error = err.Error()
		r.OverallPassed = false
	}
	r.Results = append(r.Results, res)
}

// RunConformance runs the suite and fails t if any check fails.
func RunConformance(t *testing.T, h Harness) {
	t.Helper()
	start := time.Now()
	report := &ConformanceReport{AdapterName: h.Name, OverallPassed: true}

	checks := []struct {
		name string
		fn   func(*testing.T, Harness) error
	}{
		{"identity", checkIdentity},
		{"capabilities", checkCapabilities},
		{"state_derivation", checkStateDerivation},
		{"idempotent_update", checkIdempotentUpdate},
		{"single_completion", checkSingleCompletion},
	}
	for _, c := range checks {
		s := time.Now()
		report.add(c.name, s, c.fn(t, h))
	}
	report.Duration = time.Since(start)

	for _, r := range report.Results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		t.Logf("%s %s/%s (%v) %s", status, report.AdapterName, r.TestName, r.Duration, r.Error)
	}
	if !report.OverallPassed {
		t.Fatalf("device conformance failed for %s", report.AdapterName)
	}
}

func checkIdentity(t *testing.T, h Harness) error {
	d := h.New(t)
	if !d.Type().Concrete() {
		return fmt.Errorf("type %v is not a concrete radio type", d.Type())
	}
	if d.Name() == "" {
		return fmt.Errorf("empty display name")
	}
	idx, typ := d.Index(), d.Type()
	d.UpdateStates(true, false)
	if d.Index() != idx || d.Type() != typ {
		return fmt.Errorf("identity changed after update: %d/%v -> %d/%v", idx, typ, d.Index(), d.Type())
	}
	return nil
}

func checkCapabilities(t *testing.T, h Harness) error {
	d := h.New(t)
	if !d.Capabilities().Has(adapter.CapSoftBlock) {
		return fmt.Errorf("backend does not accept soft block requests")
	}
	if !d.Capabilities().Has(adapter.CapHardBlock) && d.HardBlocked() {
		return fmt.Errorf("backend without a hardware switch reports a hard block")
	}
	return nil
}

func checkStateDerivation(t *testing.T, h Harness) error {
	d := h.New(t)
	if got := adapter.State(d); got != rfkill.StateUnblocked {
		return fmt.Errorf("fresh device state %v, want UNBLOCKED", got)
	}
	d.UpdateStates(true, false)
	if got := adapter.State(d); got != rfkill.StateSoftBlocked {
		return fmt.Errorf("soft blocked device state %v, want SOFT_BLOCKED", got)
	}
	if d.Capabilities().Has(adapter.CapHardBlock) {
		d.UpdateStates(true, true)
		if got := adapter.State(d); got != rfkill.StateHardBlocked {
			return fmt.Errorf("hard blocked device state %v, want HARD_BLOCKED", got)
		}
	}
	return nil
}

func checkIdempotentUpdate(t *testing.T, h Harness) error {
	d := h.New(t)
	soft, hard := d.SoftBlocked(), d.HardBlocked()
	if d.UpdateStates(soft, hard) {
		return fmt.Errorf("update with current flags reported a change")
	}
	if !d.UpdateStates(!soft, hard) {
		return fmt.Errorf("soft flip not reported as a change")
	}
	if d.UpdateStates(!soft, hard) {
		return fmt.Errorf("repeated update reported a change")
	}
	if d.Capabilities().Has(adapter.CapHardBlock) {
		if !d.UpdateStates(!soft, !hard) {
			return fmt.Errorf("hard flip not reported as a change")
		}
		if d.UpdateStates(!soft, !hard) {
			return fmt.Errorf("repeated hard update reported a change")
		}
	}
	return nil
}

func checkSingleCompletion(t *testing.T, h Harness) error {
	d := h.New(t)
	calls := 0
	d.SetSoftBlocked(true, func(error) { calls++ })
	if h.Settle != nil {
		h.Settle()
	}
	if calls != 1 {
		return fmt.Errorf("completion called %d times, want 1", calls)
	}
	return nil
}
