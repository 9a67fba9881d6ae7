// Package arbitrator composes the device registry and one killswitch per
// radio type. It applies kernel and backend lifecycle events, serves block
// requests, and runs flight mode.
//
// Everything in Arbitrator runs on one goroutine, the Loop. Backends that
// complete elsewhere post their results back to it. Service is the
// goroutine-safe front end.
//
// Flight mode visits the radio types in ascending order, one at a time. A
// failure restores the types already visited to their state before the
// operation, without waiting for those restores.
package arbitrator
