// Package telemetry streams killswitch events to clients over Server-Sent
// Events.
//
// Every event carries a monotonic ID. The hub keeps the last N events so a
// client reconnecting with a Last-Event-ID header receives what it missed.
// Publishing never blocks: events for a client whose queue is full are
// dropped for that client.
package telemetry
