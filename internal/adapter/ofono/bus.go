package ofono

import (
	"context"
	"errors"
	"fmt"
)

// Bus names and members.
const (
	DefaultService   = "org.ofono"
	ManagerInterface = "org.ofono.Manager"
	ModemInterface   = "org.ofono.Modem"
)

// Modem is one entry of the manager's modem list.
type Modem struct {
	Path       string
	Properties map[string]interface{}
}

// SignalKind tells which bus signal a Signal carries.
type SignalKind int

const (
	SignalModemAdded SignalKind = iota
	SignalModemRemoved
	SignalPropertyChanged
)

// Signal is a decoded manager or modem signal.
type Signal struct {
	Kind       SignalKind
	Path       string
	Properties map[string]interface{} // ModemAdded
	Name       string                 // PropertyChanged
	Value      interface{}            // PropertyChanged
}

// Bus is the part of the telephony bus the backend uses.
type Bus interface {
	// Modems lists the modems known to the service.
	Modems() ([]Modem, error)
	// SetModemProperty starts a SetProperty call and reports the result
	// through done, on any goroutine.
	SetModemProperty(path, name string, value interface{}, done func(error))
	// Subscribe delivers manager and modem signals until ctx is done.
	Subscribe(ctx context.Context) (<-chan Signal, error)
}

// RemoteError is a failure returned by the remote service.
type RemoteError struct {
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// remoteName returns the error name carried by err, if any.
func remoteName(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Name
	}
	return ""
}
