// Package adapter defines the radio control point shared by every backend.
//
// A Device is one backend-specific switch: a kernel rfkill entry, a telephony
// modem, or a vendor WLAN driver. The set of backends is fixed; each lives in
// its own subpackage and embeds Base.
//
// References:
//   - linux/rfkill.h: soft and hard block semantics
//   - oFono doc/modem-api.txt: Online property and error names
package adapter
