// Package ofono implements the Device backed by an oFono telephony modem.
//
// A modem's soft block is the inverse of its Online property. Requests are
// SetProperty calls on org.ofono.Modem; only one may be outstanding per modem.
// Watcher follows the modem list and registers a device while a modem is
// powered.
//
// References:
//   - oFono doc/manager-api.txt: GetModems, ModemAdded, ModemRemoved
//   - oFono doc/modem-api.txt: Powered, Online, Manufacturer, Model
package ofono
