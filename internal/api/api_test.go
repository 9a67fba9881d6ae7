package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/adapter/fake"
	"github.com/radio-control/rfkd/internal/arbitrator"
	"github.com/radio-control/rfkd/internal/config"
	"github.com/radio-control/rfkd/internal/persist"
	"github.com/radio-control/rfkd/internal/rfkill"
)

type fixture struct {
	arb    *arbitrator.Arbitrator
	wlan   *fake.Device
	modem  *fake.Device
	server *Server
}

// newFixture serves a real arbitrator with a WLAN device and a modem.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	arb := arbitrator.New(config.KillswitchConfig{}, persist.NewMemory(true), nil)

	f := &fixture{
		arb:   arb,
		wlan:  fake.New(0, rfkill.TypeWLAN, false),
		modem: fake.New(100, rfkill.TypeWWAN, false),
	}
	f.modem.DeviceKind = adapter.KindModem
	arb.AddDevice(f.wlan)
	arb.AddDevice(f.modem)

	loop := arbitrator.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	f.server = NewServer(arbitrator.NewService(arb, loop), nil, cfg.Killswitch, cfg.API)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, r)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestListKillswitches(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodGet, "/api/v1/killswitches", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Result)
	assert.NotEmpty(t, resp.CorrelationID)

	list := resp.Data.([]interface{})
	require.Len(t, list, int(rfkill.NumTypes)-1)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "WLAN", first["type"])
	assert.Equal(t, "UNBLOCKED", first["state"])
	assert.EqualValues(t, 1, first["devices"])
}

func TestGetKillswitch(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/api/v1/killswitches/gps", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NO_ADAPTER", resp.Data.(map[string]interface{})["state"])

	w, resp = f.do(t, http.MethodGet, "/api/v1/killswitches/toaster", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", resp.Code)

	w, _ = f.do(t, http.MethodGet, "/api/v1/killswitches/wlan/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlockKillswitch(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/v1/killswitches/WLAN/block", `{"blocked":true}`)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, []bool{true}, f.wlan.Calls)

	w, resp = f.do(t, http.MethodPost, "/api/v1/killswitches/WLAN/block", `{"blocked":true,"x":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", resp.Code)

	w, _ = f.do(t, http.MethodPost, "/api/v1/killswitches/WLAN/block", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = f.do(t, http.MethodGet, "/api/v1/killswitches/WLAN/block", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
	assert.Equal(t, "METHOD_NOT_ALLOWED", resp.Code)
}

func TestBlockErrorsMapToStatus(t *testing.T) {
	f := newFixture(t)
	f.modem.Err = adapter.NewError(adapter.ErrEmergency, "modem", nil)

	w, resp := f.do(t, http.MethodPost, "/api/v1/killswitches/wwan/block", `{"blocked":true}`)
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "EMERGENCY", resp.Code)

	w, resp = f.do(t, http.MethodPost, "/api/v1/flight-mode", `{"enabled":true}`)
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, map[string]interface{}{"type": "WWAN"}, resp.Details)
}

func TestDevices(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/api/v1/devices", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := resp.Data.([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "modem", list[1].(map[string]interface{})["kind"])

	w, resp = f.do(t, http.MethodGet, "/api/v1/devices/100", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "WWAN", resp.Data.(map[string]interface{})["type"])

	w, resp = f.do(t, http.MethodGet, "/api/v1/devices/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	w, _ = f.do(t, http.MethodGet, "/api/v1/devices/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/v1/devices/100/block", `{"blocked":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []bool{true}, f.modem.Calls)
	assert.Empty(t, f.wlan.Calls)

	w, resp = f.do(t, http.MethodPost, "/api/v1/devices/7/block", `{"blocked":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlightMode(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/v1/flight-mode", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, []bool{true}, f.wlan.Calls)
	assert.Equal(t, []bool{true}, f.modem.Calls)

	w, resp = f.do(t, http.MethodGet, "/api/v1/flight-mode", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["enabled"])

	w, _ = f.do(t, http.MethodDelete, "/api/v1/flight-mode", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestConfigAndHealth(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/api/v1/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	settings := resp.Data.(map[string]interface{})
	assert.Equal(t, true, settings["persist"])
	assert.Equal(t, false, settings["forceSync"])

	// No telemetry hub in the fixture.
	w, resp = f.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_DEGRADED", resp.Code)

	w, resp = f.do(t, http.MethodGet, "/api/v1/telemetry", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServerSpeaksCleartextHTTP2(t *testing.T) {
	f := newFixture(t)
	errc := make(chan error, 1)
	go func() { errc <- f.server.Start("127.0.0.1:0") }()
	t.Cleanup(func() {
		require.NoError(t, f.server.Stop(context.Background()))
		require.NoError(t, <-errc)
	})

	require.Eventually(t, func() bool { return f.server.Addr() != nil }, testTimeout, testTick)

	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}
	resp, err := client.Get("http://" + f.server.Addr().String() + "/api/v1/killswitches/wlan")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, resp.ProtoMajor)
}
