package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/http2"
)

// envelope is the daemon's response wrapper.
type envelope struct {
	Result  string          `json:"result"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// apiError is a failed request as reported by the daemon.
type apiError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" && e.Details != "null" {
		msg += " " + e.Details
	}
	return msg
}

// client talks to the control API over cleartext HTTP/2.
type client struct {
	base string
	http *http.Client
}

// newClient accepts "http://host:port" or "unix:/path/to/socket".
func newClient(addr string) *client {
	network, address, base := "tcp", "", strings.TrimSuffix(addr, "/")
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		network, address, base = "unix", path, "http://rfkd"
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	tr := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, _, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			if network == "unix" {
				return d.DialContext(ctx, "unix", address)
			}
			return d.DialContext(ctx, "tcp", addr)
		},
	}
	return &client{base: base + "/api/v1", http: &http.Client{Transport: tr}}
}

func (c *client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if env.Result != "ok" {
		return &apiError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Details: string(env.Details)}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// sseEvent is one event from the telemetry stream.
type sseEvent struct {
	ID    string
	Event string
	Data  string
}

// stream reads the telemetry stream and calls fn for each event until ctx
// ends or the daemon closes the stream.
func (c *client) stream(ctx context.Context, radioType string, fn func(sseEvent) error) error {
	url := c.base + "/telemetry"
	if radioType != "" {
		url += "?type=" + radioType
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subscribe: HTTP %d", resp.StatusCode)
	}

	var ev sseEvent
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if ev.Event != "" {
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev = sseEvent{}
		case strings.HasPrefix(line, "id: "):
			ev.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			ev.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.Data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
