package rfkill

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Op is the operation carried by a control device event.
type Op uint8

const (
	OpAdd Op = iota
	OpDel
	OpChange
	OpChangeAll
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "ADD"
	case OpDel:
		return "DEL"
	case OpChange:
		return "CHANGE"
	case OpChangeAll:
		return "CHANGE_ALL"
	default:
		return fmt.Sprintf("OP(%d)", uint8(o))
	}
}

// EventSize is the size of the version 1 event. Newer kernels append fields,
// reads are truncated to this size.
const EventSize = 8

// ErrMalformedEvent is returned for reads that are not exactly one event long.
var ErrMalformedEvent = errors.New("MALFORMED_EVENT")

// Event is one record from the kernel control device.
type Event struct {
	Index uint32
	Type  RadioType
	Op    Op
	Soft  bool
	Hard  bool
}

func (e Event) String() string {
	return fmt.Sprintf("idx=%d type=%s op=%s soft=%t hard=%t", e.Index, e.Type, e.Op, e.Soft, e.Hard)
}

// DecodeEvent parses one raw event.
func DecodeEvent(b []byte) (Event, error) {
	if len(b) != EventSize {
		return Event{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedEvent, len(b), EventSize)
	}
	return Event{
		Index: binary.NativeEndian.Uint32(b[0:4]),
		Type:  RadioType(b[4]),
		Op:    Op(b[5]),
		Soft:  b[6] > 0,
		Hard:  b[7] > 0,
	}, nil
}

// Encode returns the raw form of e.
func (e Event) Encode() []byte {
	b := make([]byte, EventSize)
	binary.NativeEndian.PutUint32(b[0:4], e.Index)
	b[4] = byte(e.Type)
	b[5] = byte(e.Op)
	b[6] = boolByte(e.Soft)
	b[7] = boolByte(e.Hard)
	return b
}

// BlockEvent is the write that sets the soft block of every device of a type.
func BlockEvent(t RadioType, soft bool) Event {
	return Event{Type: t, Op: OpChangeAll, Soft: soft}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
