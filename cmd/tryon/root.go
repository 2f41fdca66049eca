package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alankarika/go-tryon/config"
	"github.com/alankarika/go-tryon/logger"
	"github.com/spf13/cobra"
)

// Version is the application version
const Version = "0.3.0"

var (
	// configPath is the YAML configuration file
	configPath string
	// cfg is the loaded configuration shared by subcommands
	cfg *config.Config
	// logCloser releases the log file
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "tryon",
	Short:         "Live virtual jewelry try-on",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {

		var err error

		cfg, err = config.Load(configPath)

		if err != nil {
			return err
		}

		if err := applyFlags(cmd, cfg); err != nil {
			return err
		}

		logCloser, err = logger.Init(cfg.Log)

		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	// serve is the default command
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command until it completes or SIGINT/SIGTERM is
// received
func Execute() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.String("file", "", "replay a video file instead of the camera")
	flags.String("backend", "", "face mesh backend, opencv or npu")
	flags.Int("index", -1, "tracked face mesh keypoint index")
	flags.Bool("debug", false, "draw all face keypoints over the video")
	flags.String("log-level", "", "log level")
	flags.Bool("window", false, "show the view in a local window instead of serving HTTP")
}

// applyFlags overrides configuration values with flags set on the command
// line
func applyFlags(cmd *cobra.Command, c *config.Config) error {

	flags := cmd.Flags()

	if flags.Changed("file") {
		c.Capture.File, _ = flags.GetString("file")
	}

	if flags.Changed("backend") {
		c.Detector.Backend, _ = flags.GetString("backend")
	}

	if flags.Changed("index") {
		c.Bridge.Index, _ = flags.GetInt("index")
	}

	if flags.Changed("debug") {
		c.Scene.Debug, _ = flags.GetBool("debug")
	}

	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}

	if flags.Changed("window") {
		c.Server.Window, _ = flags.GetBool("window")
	}

	return c.Validate()
}
