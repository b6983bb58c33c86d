package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auroradesk/aurora-shell/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage shell.conf",
		Long: `Manage the shell configuration.

Settings are read from shell.conf and may be overridden by AURORA_*
environment variables (AURORA_BACKEND_EXE, AURORA_BRIDGE_URL, ...).`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default shell.conf",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.Save(config.NewShellConfig(), path); err != nil {
				return err
			}

			GetLogger().Debug().Str("path", path).Msg("Wrote default configuration")
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after environment overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n\n", path)

			exe := cfg.ResolveBackendExecutable()
			fmt.Fprintln(out, "[backend]")
			fmt.Fprintf(out, "  executable:      %s\n", exe)
			fmt.Fprintf(out, "  entry_point:     %s\n", cfg.Backend.EntryPoint)
			fmt.Fprintf(out, "  autostart:       %t\n", cfg.Backend.Autostart)
			fmt.Fprintf(out, "  work_dir:        %s\n", cfg.Backend.WorkDir)

			fmt.Fprintln(out, "[bridge]")
			fmt.Fprintf(out, "  base_url:        %s\n", cfg.Bridge.BaseURL)
			fmt.Fprintf(out, "  timeout:         %s\n", cfg.BridgeTimeout())
			fmt.Fprintf(out, "  retry_max:       %d\n", cfg.Bridge.RetryMax)

			fmt.Fprintln(out, "[window]")
			fmt.Fprintf(out, "  start_hidden:    %t\n", cfg.Window.StartHidden)

			fmt.Fprintln(out, "[logging]")
			fmt.Fprintf(out, "  level:           %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "  metrics_addr:    %s\n", cfg.Logging.MetricsAddr)

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "\nWarning: %v\n", err)
			} else if !cfg.BridgeIsLoopback() {
				fmt.Fprintln(out, "\nWarning: bridge base_url is not a loopback address")
			}
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration and log file locations",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file:   %s\n", configPath())
			fmt.Fprintf(out, "Log directory: %s\n", config.LogDirectory())
			fmt.Fprintf(out, "UI fallback:   %s\n", config.FallbackLogPath(""))
			fmt.Fprintf(out, "Runtime dir:   %s\n", config.RuntimeDirectory())
		},
	}
}
