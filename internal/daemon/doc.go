// Package daemon wires the killswitch daemon together: persisted state,
// arbitrator loop, backends, audit trail, telemetry and the control API.
package daemon
