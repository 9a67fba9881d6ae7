// Package radio implements the device registry.
//
// The registry owns every Device, keyed by index, and keeps each device's
// killswitch membership in step with it: adding, removing and updating a
// device all go through the registry, which recomputes the affected
// killswitch in the same call.
package radio
