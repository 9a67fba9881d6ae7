package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/arbitrator"
	"github.com/radio-control/rfkd/internal/rfkill"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 10 * time.Millisecond
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"in progress", adapter.NewError(adapter.ErrInProgress, "WLAN", nil), http.StatusConflict, "IN_PROGRESS"},
		{"emergency", adapter.NewError(adapter.ErrEmergency, "modem", nil), http.StatusLocked, "EMERGENCY"},
		{"general", adapter.Errorf("device %d", 3), http.StatusInternalServerError, "GENERAL"},
		{"not found", fmt.Errorf("%w: device 9", arbitrator.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"unknown index", adapter.NewError(adapter.ErrGeneral, "device 9", arbitrator.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"bad type", fmt.Errorf("%w: radio type 12", arbitrator.ErrInvalidParameter), http.StatusBadRequest, "BAD_REQUEST"},
		{"abandoned", context.DeadlineExceeded, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
		{"api error", NewAPIError("TEAPOT", "short and stout", http.StatusTeapot, nil), http.StatusTeapot, "TEAPOT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ToAPIError(tt.err)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestToAPIErrorNamesFlightModeType(t *testing.T) {
	err := &arbitrator.FlightModeError{
		Type: rfkill.TypeBluetooth,
		Err:  adapter.NewError(adapter.ErrInProgress, "BLUETOOTH", nil),
	}
	e := ToAPIError(err)
	assert.Equal(t, http.StatusConflict, e.StatusCode)
	assert.Equal(t, map[string]string{"type": "BLUETOOTH"}, e.Details)
}
