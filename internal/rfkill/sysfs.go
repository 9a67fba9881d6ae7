package rfkill

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSysfsRoot is the rfkill class directory.
const DefaultSysfsRoot = "/sys/class/rfkill"

// Sysfs reads device attributes that the event feed does not carry.
type Sysfs struct {
	Root string
}

// Name returns the device name, or "" when it cannot be read.
func (s Sysfs) Name(index uint32) string {
	b, err := os.ReadFile(filepath.Join(s.node(index), "name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Platform reports whether any parent of the device belongs to the platform
// bus, meaning the switch is built into the host.
func (s Sysfs) Platform(index uint32) bool {
	real, err := filepath.EvalSymlinks(s.node(index))
	if err != nil {
		return false
	}
	for dir := filepath.Dir(real); dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		link, err := os.Readlink(filepath.Join(dir, "subsystem"))
		if err != nil {
			continue
		}
		if filepath.Base(link) == "platform" {
			return true
		}
	}
	return false
}

func (s Sysfs) node(index uint32) string {
	root := s.Root
	if root == "" {
		root = DefaultSysfsRoot
	}
	return filepath.Join(root, fmt.Sprintf("rfkill%d", index))
}
