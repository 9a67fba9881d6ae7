package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultModuleRoot lists loaded kernel modules.
const DefaultModuleRoot = "/sys/module"

// ModuleLoader loads a kernel module from a file and removes it by name.
type ModuleLoader struct {
	Name   string // module name as shown under /sys/module
	Path   string // .ko file
	Params string // module parameters
	Root   string // defaults to DefaultModuleRoot
}

var _ Loader = (*ModuleLoader)(nil)

// Load inserts the module. An already loaded module is not an error.
func (m *ModuleLoader) Load() error {
	f, err := os.Open(m.Path)
	if err != nil {
		return fmt.Errorf("open module %s: %w", m.Path, err)
	}
	defer f.Close()

	if err := unix.FinitModule(int(f.Fd()), m.Params, 0); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("finit_module %s: %w", m.Name, err)
	}
	return nil
}

// Unload removes the module. A module that is not loaded is not an error.
func (m *ModuleLoader) Unload() error {
	if err := unix.DeleteModule(m.sysName(), unix.O_NONBLOCK); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("delete_module %s: %w", m.Name, err)
	}
	return nil
}

// Loaded probes /sys/module.
func (m *ModuleLoader) Loaded() bool {
	root := m.Root
	if root == "" {
		root = DefaultModuleRoot
	}
	_, err := os.Stat(filepath.Join(root, m.sysName()))
	return err == nil
}

// sysName follows the kernel's rule of showing dashes as underscores.
func (m *ModuleLoader) sysName() string {
	return strings.ReplaceAll(m.Name, "-", "_")
}
