// Package audit records killswitch commands as JSON lines.
//
// Each entry carries the action, its target radio type or device, the
// outcome and the latency. Files are rotated by size through lumberjack.
package audit
