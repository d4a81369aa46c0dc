package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track the webcam and drive the tools",
	Long: `Opens the camera, detects hands with the MediaPipe service and runs the
gesture pipeline. Frames are published to the web UI, the event store,
redis and the configured plugin actions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		withTray, _ := cmd.Flags().GetBool("tray")
		record, _ := cmd.Flags().GetString("record")

		cfg, st, err := loadConfig(ctx, configPath(cmd))
		if err != nil {
			return err
		}
		if st != nil {
			st.Close()
		}
		logger, err := logging.FromConfig(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}

		cam := capture.NewCamera(cfg.Capture)
		var provider detector.Provider
		mp, err := detector.NewMediaPipeDetector(cfg.Tracking)
		switch {
		case errors.Is(err, detector.ErrServiceNotFound):
			logger.Warn("mediapipe service not found, running without hand detection", "error", err)
			provider = detector.NewMockDetector()
		case err != nil:
			return err
		default:
			provider = mp
		}

		camSrc := app.NewCameraSource(cam, provider, cfg.Capture,
			app.WithPreview(), app.WithCameraLogger(logger))
		rt, err := newRunner(ctx, configPath(cmd), runOptions{source: "camera", preview: camSrc})
		if err != nil {
			camSrc.Close()
			return err
		}
		defer rt.close()

		if err := camSrc.Open(); err != nil {
			camSrc.Close()
			return fmt.Errorf("open camera: %w", err)
		}
		defer camSrc.Close()

		var src app.Source = camSrc
		if record != "" {
			f, err := os.Create(record)
			if err != nil {
				return fmt.Errorf("create recording: %w", err)
			}
			defer f.Close()
			src = app.NewRecording(camSrc, f)
		}

		rt.logger.Info("mudra started", "fps", camSrc.FPS(), "tool", cfg.InitialTool, "server", cfg.Server.Enabled)
		return rt.run(ctx, src, withTray)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("tray", false, "Show the system tray menu")
	runCmd.Flags().String("record", "", "Write the observed ticks to a JSON lines file for replay")

	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
