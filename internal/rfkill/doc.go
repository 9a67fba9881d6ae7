// Package rfkill holds the radio classes, killswitch states and the kernel
// control device event format shared by every backend.
//
// References:
//   - linux/rfkill.h: enum rfkill_type, enum rfkill_operation, struct rfkill_event
//   - Documentation/driver-api/rfkill.rst: /dev/rfkill userspace interface
package rfkill
