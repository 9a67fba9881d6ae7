// Package api serves the killswitch control API.
//
// Commands and queries are HTTP/JSON under /api/v1 and answer in a
// {result, data, code, message} envelope. Notifications are streamed as
// Server-Sent Events from /api/v1/telemetry. The server speaks HTTP/1.1 and
// cleartext HTTP/2.
package api
