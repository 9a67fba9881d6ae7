package arbitrator

import (
	"fmt"

	"github.com/radio-control/rfkd/internal/rfkill"
)

// FlightModeError names the radio type whose block request failed flight
// mode. It unwraps to the device error, so the error kind stays visible.
type FlightModeError struct {
	Type rfkill.RadioType
	Err  error
}

func (e *FlightModeError) Error() string {
	return fmt.Sprintf("flight mode: set_block failed: %s: %v", e.Type, e.Err)
}

func (e *FlightModeError) Unwrap() error {
	return e.Err
}
