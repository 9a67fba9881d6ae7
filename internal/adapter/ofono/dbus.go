package ofono

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// DBusBus talks to oFono over a D-Bus connection.
type DBusBus struct {
	conn    *dbus.Conn
	service string
}

var _ Bus = (*DBusBus)(nil)

// ConnectBus connects to the system bus, or the session bus when kind is
// "session".
func ConnectBus(kind, service string) (*DBusBus, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch kind {
	case "", "system":
		conn, err = dbus.ConnectSystemBus()
	case "session":
		conn, err = dbus.ConnectSessionBus()
	default:
		return nil, fmt.Errorf("unknown bus %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s bus: %w", kind, err)
	}
	return NewDBusBus(conn, service), nil
}

// NewDBusBus wraps an existing connection.
func NewDBusBus(conn *dbus.Conn, service string) *DBusBus {
	if service == "" {
		service = DefaultService
	}
	return &DBusBus{conn: conn, service: service}
}

// Close closes the connection.
func (b *DBusBus) Close() error {
	return b.conn.Close()
}

func (b *DBusBus) Modems() ([]Modem, error) {
	var entries []struct {
		Path       dbus.ObjectPath
		Properties map[string]dbus.Variant
	}
	call := b.conn.Object(b.service, "/").Call(ManagerInterface+".GetModems", 0)
	if err := call.Store(&entries); err != nil {
		return nil, fmt.Errorf("GetModems: %w", wrapRemote(err))
	}
	modems := make([]Modem, 0, len(entries))
	for _, e := range entries {
		modems = append(modems, Modem{Path: string(e.Path), Properties: plain(e.Properties)})
	}
	return modems, nil
}

func (b *DBusBus) SetModemProperty(path, name string, value interface{}, done func(error)) {
	obj := b.conn.Object(b.service, dbus.ObjectPath(path))
	call := obj.Go(ModemInterface+".SetProperty", 0, make(chan *dbus.Call, 1), name, dbus.MakeVariant(value))
	go func() {
		c := <-call.Done
		done(wrapRemote(c.Err))
	}()
}

func (b *DBusBus) Subscribe(ctx context.Context) (<-chan Signal, error) {
	matches := [][]dbus.MatchOption{
		{dbus.WithMatchSender(b.service), dbus.WithMatchInterface(ManagerInterface)},
		{dbus.WithMatchSender(b.service), dbus.WithMatchInterface(ModemInterface), dbus.WithMatchMember("PropertyChanged")},
	}
	for _, m := range matches {
		if err := b.conn.AddMatchSignal(m...); err != nil {
			return nil, fmt.Errorf("add match: %w", err)
		}
	}

	raw := make(chan *dbus.Signal, 32)
	b.conn.Signal(raw)
	out := make(chan Signal, 32)

	go func() {
		defer close(out)
		defer b.conn.RemoveSignal(raw)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-raw:
				if !ok {
					return
				}
				sig, ok := decodeSignal(s)
				if !ok {
					continue
				}
				select {
				case out <- sig:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeSignal(s *dbus.Signal) (Signal, bool) {
	switch s.Name {
	case ManagerInterface + ".ModemAdded":
		if len(s.Body) < 2 {
			return Signal{}, false
		}
		path, ok1 := s.Body[0].(dbus.ObjectPath)
		props, ok2 := s.Body[1].(map[string]dbus.Variant)
		if !ok1 || !ok2 {
			return Signal{}, false
		}
		return Signal{Kind: SignalModemAdded, Path: string(path), Properties: plain(props)}, true
	case ManagerInterface + ".ModemRemoved":
		if len(s.Body) < 1 {
			return Signal{}, false
		}
		path, ok := s.Body[0].(dbus.ObjectPath)
		if !ok {
			return Signal{}, false
		}
		return Signal{Kind: SignalModemRemoved, Path: string(path)}, true
	case ModemInterface + ".PropertyChanged":
		if len(s.Body) < 2 {
			return Signal{}, false
		}
		name, ok1 := s.Body[0].(string)
		value, ok2 := s.Body[1].(dbus.Variant)
		if !ok1 || !ok2 {
			return Signal{}, false
		}
		return Signal{Kind: SignalPropertyChanged, Path: string(s.Path), Name: name, Value: value.Value()}, true
	}
	return Signal{}, false
}

func plain(props map[string]dbus.Variant) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v.Value()
	}
	return out
}

// wrapRemote turns a D-Bus error reply into a RemoteError.
func wrapRemote(err error) error {
	if err == nil {
		return nil
	}
	var de dbus.Error
	if errors.As(err, &de) {
		return &RemoteError{Name: de.Name, Message: strings.TrimSpace(de.Error())}
	}
	var dep *dbus.Error
	if errors.As(err, &dep) {
		return &RemoteError{Name: dep.Name, Message: strings.TrimSpace(dep.Error())}
	}
	return err
}
