package main

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Run the pipeline over recorded ticks",
	Long: `Feeds a JSON lines file of ticks, as written by "run --record", through
the gesture pipeline. Frames with events are printed to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		realtime, _ := cmd.Flags().GetBool("realtime")
		all, _ := cmd.Flags().GetBool("all")
		serve, _ := cmd.Flags().GetBool("serve")

		var opts []app.ReplayOption
		if realtime {
			opts = append(opts, app.WithRealtime())
		}
		src, err := app.OpenReplay(args[0], opts...)
		if err != nil {
			return err
		}
		defer src.Close()

		rt, err := newRunner(ctx, configPath(cmd), runOptions{
			source:    "replay",
			stdout:    cmd.OutOrStdout(),
			printAll:  all,
			logOut:    cmd.ErrOrStderr(),
			serverOff: !serve,
		})
		if err != nil {
			return err
		}
		defer rt.close()
		return rt.run(ctx, src, false)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Bool("realtime", false, "Pace ticks by their recorded times")
	replayCmd.Flags().Bool("all", false, "Print every frame, not only frames with events")
	replayCmd.Flags().Bool("serve", false, "Also start the configured HTTP server")
}
