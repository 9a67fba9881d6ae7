package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/rfkd/internal/adapter/fake"
	"github.com/radio-control/rfkd/internal/api"
	"github.com/radio-control/rfkd/internal/arbitrator"
	"github.com/radio-control/rfkd/internal/config"
	"github.com/radio-control/rfkd/internal/persist"
	"github.com/radio-control/rfkd/internal/rfkill"
	"github.com/radio-control/rfkd/internal/telemetry"
)

type testDaemon struct {
	url  string
	wlan *fake.Device
	hub  *telemetry.Hub
}

func startTestDaemon(t *testing.T) *testDaemon {
	t.Helper()
	cfg := config.Default()
	hub := telemetry.NewHub(cfg.Telemetry)
	arb := arbitrator.New(cfg.Killswitch, persist.NewMemory(true), hub)
	wlan := fake.New(0, rfkill.TypeWLAN, false)
	arb.AddDevice(wlan)

	loop := arbitrator.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	srv := httptest.NewServer(api.NewServer(arbitrator.NewService(arb, loop), hub, cfg.Killswitch, cfg.API).Handler())
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
		cancel()
	})
	return &testDaemon{url: srv.URL, wlan: wlan, hub: hub}
}

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestList(t *testing.T) {
	d := startTestDaemon(t)
	out, err := run(t, context.Background(), "--addr", d.url, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Regexp(t, `WLAN\s+UNBLOCKED\s+1`, out)
	assert.Regexp(t, `GPS\s+NO_ADAPTER\s+0`, out)
}

func TestDevicesJSON(t *testing.T) {
	d := startTestDaemon(t)
	out, err := run(t, context.Background(), "--addr", d.url, "--json", "devices")
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "WLAN"`)
	assert.Contains(t, out, `"index": 0`)
}

func TestBlockByTypeAndIndex(t *testing.T) {
	d := startTestDaemon(t)

	out, err := run(t, context.Background(), "--addr", d.url, "block", "wlan")
	require.NoError(t, err)
	assert.Equal(t, "wlan: blocked\n", out)

	_, err = run(t, context.Background(), "--addr", d.url, "unblock", "0")
	require.NoError(t, err)

	_, err = run(t, context.Background(), "--addr", d.url, "block", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")

	_, err = run(t, context.Background(), "--addr", d.url, "block", "toaster")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_REQUEST")
}

func TestFlightMode(t *testing.T) {
	d := startTestDaemon(t)

	out, err := run(t, context.Background(), "--addr", d.url, "flight-mode", "on")
	require.NoError(t, err)
	assert.Equal(t, "flight mode: on\n", out)

	out, err = run(t, context.Background(), "--addr", d.url, "flight-mode")
	require.NoError(t, err)
	assert.Equal(t, "flight mode: on\n", out)

	_, err = run(t, context.Background(), "--addr", d.url, "flight-mode", "sideways")
	assert.Error(t, err)
}

func TestMonitorPrintsEvents(t *testing.T) {
	d := startTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		cmd := newRootCmd(&out)
		cmd.SetArgs([]string{"--addr", d.url, "monitor"})
		done <- cmd.ExecuteContext(ctx)
	}()

	require.Eventually(t, func() bool { return d.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	d.hub.FlightModeChanged(true)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `flight-mode {"enabled":true}`)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
