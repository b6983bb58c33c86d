package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/auroradesk/aurora-shell/internal/bridge"
	"github.com/auroradesk/aurora-shell/internal/config"
	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/progress"
)

// newBridgeCmd creates the 'bridge' command group.
func newBridgeCmd() *cobra.Command {
	bridgeCmd := &cobra.Command{
		Use:   "bridge",
		Short: "Talk to the backend through the bridge",
		Long: `Issue bridge operations against the backend's HTTP API, exactly as the
UI does. Uses bridge.base_url from shell.conf or AURORA_BRIDGE_URL.`,
	}

	bridgeCmd.AddCommand(newBridgePingCmd())
	bridgeCmd.AddCommand(newBridgeRoutesCmd())
	bridgeCmd.AddCommand(newBridgeCallCmd())
	bridgeCmd.AddCommand(newBridgeTailCmd())
	bridgeCmd.AddCommand(newBridgeWaitCmd())
	bridgeCmd.AddCommand(newBridgeLogCmd())

	return bridgeCmd
}

// newBridgeClient builds a client and bridge from the effective configuration.
func newBridgeClient() (*bridge.Client, *bridge.Bridge, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := GetLogger()
	client, err := bridge.NewClient(cfg.Bridge.BaseURL, bridge.PolicyFromConfig(cfg), logger, nil)
	if err != nil {
		return nil, nil, err
	}
	b := bridge.New(client, bridge.NewFallbackLogger(config.FallbackLogPath("")), logger, nil)
	return client, b, nil
}

// printJSON pretty-prints a backend JSON reply, or echoes it raw if it isn't JSON.
func printJSON(w io.Writer, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(w, strings.TrimSpace(string(raw)))
		return
	}
	fmt.Fprintln(w, buf.String())
}

func newBridgePingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backend answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, b, err := newBridgeClient()
			if err != nil {
				return err
			}
			bridge.Attach(cmd.Context(), b)

			reply, err := b.Ping()
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

func newBridgeRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List bridge operations and their backend endpoints",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OPERATION\tMETHOD\tPATH")
			for _, op := range bridge.Routes() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", op.Name, op.Method, op.Path)
			}
			w.Flush()
		},
	}
}

func newBridgeCallCmd() *cobra.Command {
	var data string
	var query []string

	cmd := &cobra.Command{
		Use:   "call <operation>",
		Short: "Invoke any bridge operation by name",
		Long: `Invoke a bridge operation by name (see 'aurora bridge routes').

Examples:
  aurora bridge call memoryInfo
  aurora bridge call setSettings --data '{"theme":"dark"}'
  aurora bridge call tailLogs --query lines=50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, ok := bridge.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", bridge.ErrUnknownOperation, args[0])
			}

			var payload interface{}
			if data != "" {
				var body json.RawMessage
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return fmt.Errorf("--data is not valid JSON: %w", err)
				}
				payload = body
			}

			values := url.Values{}
			for _, kv := range query {
				k, v, found := strings.Cut(kv, "=")
				if !found {
					return fmt.Errorf("--query expects key=value, got %q", kv)
				}
				values.Add(k, v)
			}

			client, _, err := newBridgeClient()
			if err != nil {
				return err
			}

			reply, err := client.Do(cmd.Context(), op, values, payload)
			if err != nil {
				return err
			}
			if op.Binary {
				fmt.Fprintf(cmd.OutOrStdout(), "%d bytes\n", len(reply))
				return nil
			}
			printJSON(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "JSON request body")
	cmd.Flags().StringArrayVar(&query, "query", nil, "Query parameter key=value (repeatable)")
	return cmd
}

func newBridgeTailCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the last lines of the backend log",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, b, err := newBridgeClient()
			if err != nil {
				return err
			}
			bridge.Attach(cmd.Context(), b)

			reply, err := b.TailLogs(lines)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", constants.DefaultTailLines, fmt.Sprintf("Number of lines (max %d)", constants.MaxTailLines))
	return cmd
}

func newBridgeWaitCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the backend answers ping",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, b, err := newBridgeClient()
			if err != nil {
				return err
			}

			var reporter progress.Reporter = progress.NewNoOpProgress()
			if term.IsTerminal(int(os.Stderr.Fd())) {
				reporter = progress.NewCLIProgress(cmd.ErrOrStderr())
			}

			reply, err := waitForBackend(cmd.Context(), b, timeout, constants.WaitPollInterval, reporter)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultWaitTimeout, "Give up after this long")
	return cmd
}

// waitForBackend polls ping until it succeeds, the timeout passes or ctx ends.
func waitForBackend(ctx context.Context, b *bridge.Bridge, timeout, interval time.Duration, reporter progress.Reporter) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	bridge.Attach(ctx, b)

	reporter.Start(-1, "waiting for backend")
	defer reporter.Finish()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var attempts int64
	for {
		attempts++
		reply, err := b.Ping()
		if err == nil {
			return reply, nil
		}
		reporter.Update(attempts)

		// A reachable backend that rejects ping won't recover by polling.
		if !bridge.IsUnreachable(err) {
			reporter.Error(err)
			return nil, err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("backend did not answer within %s: %w", timeout, err)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newBridgeLogCmd() *cobra.Command {
	var level, detail string

	cmd := &cobra.Command{
		Use:   "log <message>",
		Short: "Send a client log entry, falling back to the local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, b, err := newBridgeClient()
			if err != nil {
				return err
			}
			bridge.Attach(cmd.Context(), b)

			entry := bridge.ClientLogEntry{Level: level, Message: args[0]}
			if detail != "" {
				entry.Detail = detail
			}

			res := b.LogClient(entry)
			switch {
			case res.OK:
				fmt.Fprintln(cmd.OutOrStdout(), "Delivered to backend.")
			case res.Fallback:
				fmt.Fprintf(cmd.OutOrStdout(), "Backend unavailable; written to %s\n", config.FallbackLogPath(""))
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Not delivered: %s\n", res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "info", "Log level")
	cmd.Flags().StringVar(&detail, "detail", "", "Optional detail text")
	return cmd
}
