package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/auroradesk/aurora-shell/internal/config"
	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/logging"
	"github.com/auroradesk/aurora-shell/internal/supervisor"
)

// newBackendCmd creates the 'backend' command group.
func newBackendCmd() *cobra.Command {
	backendCmd := &cobra.Command{
		Use:   "backend",
		Short: "Supervise the backend without the GUI",
	}
	backendCmd.AddCommand(newBackendRunCmd())
	return backendCmd
}

// newBackendRunCmd creates the 'backend run' command.
func newBackendRunCmd() *cobra.Command {
	var exe, entry string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the backend in the foreground until interrupted",
		Long: `Start the backend exactly as the desktop shell would and stream its
output. Ctrl+C stops the backend and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if exe != "" {
				cfg.Backend.Executable = exe
			}
			if entry != "" {
				cfg.Backend.EntryPoint = entry
			}

			opts := supervisor.Options{Logger: logger}
			if out, err := logging.NewRotatingFile(filepath.Join(config.LogDirectory(), constants.BackendLogFileName)); err != nil {
				logger.Warn().Err(err).Msg("Backend output log unavailable")
			} else {
				defer out.Close()
				opts.OutputLog = out
			}

			return runBackend(cmd, supervisor.New(supervisor.SpecFromConfig(cfg), opts))
		},
	}

	cmd.Flags().StringVar(&exe, "exe", "", "Backend executable (overrides config and AURORA_BACKEND_EXE)")
	cmd.Flags().StringVar(&entry, "entry", "", "Backend entry point argument")
	return cmd
}

func runBackend(cmd *cobra.Command, sup *supervisor.Supervisor) error {
	sup.Start()

	st := sup.Status()
	if !st.Running {
		return fmt.Errorf("backend did not start: %s", st.LastError)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backend running (pid %d). Press Ctrl+C to stop.\n", st.PID)

	exit, err := sup.Wait(cmd.Context())
	if err != nil {
		// Interrupted: stop and wait for the process to go away.
		if done := sup.Stop(); done != nil {
			if termErr := <-done; termErr != nil {
				return termErr
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Backend stopped.")
		return nil
	}

	if exit.Code != 0 {
		return fmt.Errorf("backend exited with code %d", exit.Code)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Backend exited.")
	return nil
}
