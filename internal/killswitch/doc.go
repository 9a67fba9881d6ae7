// Package killswitch aggregates the devices of one radio type into a single
// state and serializes software block requests across them.
//
// A killswitch holds references to its members; the registry owns them.
// Members are kept most-recently-added first, which is also the order in
// which block requests visit them.
//
// State precedence: a blocking platform switch wins outright. When the
// platform switch is unblocked, the strongest block among the other adapters
// takes over. Without a platform switch, the strongest block wins.
package killswitch
