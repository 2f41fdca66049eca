package main

import (
	"context"

	tryon "github.com/alankarika/go-tryon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the try-on pipeline and serve the view over HTTP or in a window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe opens the session and runs it until ctx is done
func runServe(ctx context.Context) error {

	s, err := tryon.Open(cfg)

	if err != nil {
		return err
	}

	defer s.Close()

	if !cfg.Server.Window {
		return s.Run(ctx, true)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx, false)
	}()

	if err := runWindow(ctx, s, cfg); err != nil {
		log.WithError(err).Error("Window closed with error")
	}

	cancel()

	return <-done
}
