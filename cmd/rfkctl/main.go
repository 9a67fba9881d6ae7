// Command rfkctl controls a running rfkd.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// Device and killswitch views as served by the daemon.
type killswitchView struct {
	Type    string `json:"type"`
	State   string `json:"state"`
	Devices int    `json:"devices"`
}

type deviceView struct {
	Index    uint32 `json:"index"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Soft     bool   `json:"soft"`
	Hard     bool   `json:"hard"`
	Platform bool   `json:"platform"`
	State    string `json:"state"`
}

var (
	addr       string
	jsonOutput bool
)

func defaultAddr() string {
	if a := os.Getenv("RFKCTL_ADDR"); a != "" {
		return a
	}
	return "http://127.0.0.1:8087"
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "rfkctl",
		Short:         "rfkctl - control the radio killswitch daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&addr, "addr", defaultAddr(), "daemon address (http://host:port or unix:/path)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		listCmd(),
		devicesCmd(),
		blockCmd("block", true),
		blockCmd("unblock", false),
		flightModeCmd(),
		monitorCmd(),
	)
	return root
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the state of every radio type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list []killswitchView
			if err := newClient(addr).do(cmd.Context(), "GET", "/killswitches", nil, &list); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), list)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tSTATE\tDEVICES")
			for _, k := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", k.Type, k.State, k.Devices)
			}
			return tw.Flush()
		},
	}
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the registered devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list []deviceView
			if err := newClient(addr).do(cmd.Context(), "GET", "/devices", nil, &list); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), list)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tTYPE\tKIND\tNAME\tSTATE")
			for _, d := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.Index, d.Type, d.Kind, d.Name, d.State)
			}
			return tw.Flush()
		},
	}
}

// blockCmd accepts a radio type name or a device index.
func blockCmd(name string, blocked bool) *cobra.Command {
	verb := "Soft block"
	if !blocked {
		verb = "Remove the soft block of"
	}
	return &cobra.Command{
		Use:   name + " <type|index>",
		Short: verb + " a radio type or one device; type all is flight mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/killswitches/" + strings.ToLower(args[0]) + "/block"
			if _, err := strconv.ParseUint(args[0], 10, 32); err == nil {
				path = "/devices/" + args[0] + "/block"
			}
			body := map[string]bool{"blocked": blocked}
			if err := newClient(addr).do(cmd.Context(), "POST", path, body, nil); err != nil {
				return err
			}
			state := "unblocked"
			if blocked {
				state = "blocked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
			return nil
		},
	}
}

func flightModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "flight-mode [on|off]",
		Short:     "Show, enter or leave flight mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(addr)
			if len(args) == 0 {
				var status struct {
					Enabled bool `json:"enabled"`
					Running bool `json:"running"`
				}
				if err := c.do(cmd.Context(), "GET", "/flight-mode", nil, &status); err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), status)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "flight mode: %s\n", onOff(status.Enabled))
				return nil
			}

			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			if err := c.do(cmd.Context(), "POST", "/flight-mode", map[string]bool{"enabled": enabled}, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flight mode: %s\n", onOff(enabled))
			return nil
		},
	}
}

func monitorCmd() *cobra.Command {
	var radioType string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print killswitch events as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return newClient(addr).stream(cmd.Context(), strings.ToUpper(radioType), func(ev sseEvent) error {
				if ev.Event == "heartbeat" {
					return nil
				}
				if jsonOutput {
					_, err := fmt.Fprintf(out, "{\"event\":%q,\"data\":%s}\n", ev.Event, ev.Data)
					return err
				}
				_, err := fmt.Fprintf(out, "%s %s\n", ev.Event, ev.Data)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&radioType, "type", "", "only events for this radio type")
	return cmd
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
