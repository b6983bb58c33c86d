package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/auroradesk/aurora-shell/internal/wailsapp"
)

func newGUICmd() *cobra.Command {
	var hidden bool

	cmd := &cobra.Command{
		Use:   "gui",
		Short: "Run the desktop shell",
		Long: `Run the desktop shell: window, tray icon and supervised backend.

If Aurora is already running, its window is brought to the front and this
process exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wailsapp.Run(wailsapp.RunOptions{
				ConfigPath: cfgFile,
				Debug:      verbose || debug,
				Hidden:     hidden,
				Args:       os.Args[1:],
			})
		},
	}

	cmd.Flags().BoolVar(&hidden, "hidden", false, "Start in the tray without showing the window")
	return cmd
}
