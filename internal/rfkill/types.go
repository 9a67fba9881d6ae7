package rfkill

import (
	"fmt"
	"strings"
)

// RadioType is a class of wireless hardware sharing one aggregated block state.
// Values follow the kernel numbering.
type RadioType uint8

const (
	TypeAll RadioType = iota
	TypeWLAN
	TypeBluetooth
	TypeUWB
	TypeWiMAX
	TypeWWAN
	TypeGPS
	TypeFM
	TypeNFC

	// NumTypes is one past the highest known type.
	NumTypes
)

var typeNames = [NumTypes]string{
	TypeAll:       "ALL",
	TypeWLAN:      "WLAN",
	TypeBluetooth: "BLUETOOTH",
	TypeUWB:       "UWB",
	TypeWiMAX:     "WIMAX",
	TypeWWAN:      "WWAN",
	TypeGPS:       "GPS",
	TypeFM:        "FM",
	TypeNFC:       "NFC",
}

func (t RadioType) String() string {
	if t < NumTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// Valid reports whether t is a known type, ALL included.
func (t RadioType) Valid() bool {
	return t < NumTypes
}

// Concrete reports whether t names a real radio class.
func (t RadioType) Concrete() bool {
	return t > TypeAll && t < NumTypes
}

// Types returns the concrete radio types in ascending order.
func Types() []RadioType {
	types := make([]RadioType, 0, NumTypes-1)
	for t := TypeWLAN; t < NumTypes; t++ {
		types = append(types, t)
	}
	return types
}

// ParseRadioType accepts the upper-case names above as well as the
// lower-case kernel names ("wlan", "bluetooth", "wwan", ...).
func ParseRadioType(s string) (RadioType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name {
			return RadioType(t), nil
		}
	}
	return 0, fmt.Errorf("unknown radio type %q", s)
}

// KillswitchState is ordered: aggregation takes the maximum.
type KillswitchState int

const (
	StateNoAdapter   KillswitchState = -1
	StateUnblocked   KillswitchState = 0
	StateSoftBlocked KillswitchState = 1
	StateHardBlocked KillswitchState = 2
)

func (s KillswitchState) String() string {
	switch s {
	case StateNoAdapter:
		return "NO_ADAPTER"
	case StateUnblocked:
		return "UNBLOCKED"
	case StateSoftBlocked:
		return "SOFT_BLOCKED"
	case StateHardBlocked:
		return "HARD_BLOCKED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Blocked reports the soft value a state stands for when it has to be
// restored through a software block request.
func (s KillswitchState) Blocked() bool {
	return s >= StateSoftBlocked
}

// StateFromBlocks derives a single device state from its two block flags.
func StateFromBlocks(soft, hard bool) KillswitchState {
	switch {
	case hard:
		return StateHardBlocked
	case soft:
		return StateSoftBlocked
	default:
		return StateUnblocked
	}
}
