package rfkill

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultControlPath is the kernel control device.
const DefaultControlPath = "/dev/rfkill"

// ioctlNoInput is _IO('R', 1): stop the kernel from handling hot keys itself.
const ioctlNoInput = 0x5201

const pollInterval = 500 // ms

// Control is an open kernel control device.
type Control struct {
	path string

	mu     sync.Mutex
	fd     int
	closed bool
}

// Open opens the control device for reading and writing without blocking.
func Open(path string) (*Control, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Control{path: path, fd: fd}, nil
}

// Path returns the device path.
func (c *Control) Path() string {
	return c.path
}

// DisableInputHandler asks the kernel to leave hot-key handling to userspace.
func (c *Control) DisableInputHandler() error {
	if err := unix.IoctlSetInt(c.fd, ioctlNoInput, 0); err != nil {
		return fmt.Errorf("RFKILL_IOCTL_NOINPUT on %s: %w", c.path, err)
	}
	return nil
}

// Enumerate drains the events queued since open. The kernel queues one ADD
// per existing device, so this is the initial device list.
func (c *Control) Enumerate() ([]Event, error) {
	var events []Event
	for {
		ev, err := c.read()
		if errors.Is(err, unix.EAGAIN) {
			return events, nil
		}
		if errors.Is(err, ErrMalformedEvent) {
			log.Printf("warning: %s: %v", c.path, err)
			continue
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// Watch delivers events to fn until ctx is done or the device fails.
func (c *Control) Watch(ctx context.Context, fn func(Event)) error {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := unix.Poll(fds, pollInterval)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll %s: %w", c.path, err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return fmt.Errorf("poll %s: revents 0x%x", c.path, fds[0].Revents)
		}
		for {
			ev, err := c.read()
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			if errors.Is(err, ErrMalformedEvent) {
				log.Printf("warning: %s: %v", c.path, err)
				continue
			}
			if err != nil {
				return err
			}
			fn(ev)
		}
	}
}

// Write sends one event to the kernel.
func (c *Control) Write(ev Event) error {
	n, err := unix.Write(c.fd, ev.Encode())
	if err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	if n != EventSize {
		return fmt.Errorf("write %s: short write of %d bytes", c.path, n)
	}
	return nil
}

// Close releases the descriptor. It is safe to call more than once.
func (c *Control) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

func (c *Control) read() (Event, error) {
	buf := make([]byte, EventSize)
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		return Event{}, err
	}
	if n == 0 {
		return Event{}, fmt.Errorf("read %s: unexpected EOF", c.path)
	}
	return DecodeEvent(buf[:n])
}
