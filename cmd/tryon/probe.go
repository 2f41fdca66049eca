package main

import (
	"os"

	tryon "github.com/alankarika/go-tryon"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Open the video source and detector, print their details and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe()
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe() error {

	src, err := tryon.OpenSource(cfg.Capture)

	if err != nil {
		return err
	}

	det, err := tryon.OpenDetector(cfg.Detector)

	if err != nil {
		src.Close()
		return err
	}

	s, err := tryon.New(cfg, src, det, nil)

	if err != nil {
		det.Close()
		src.Close()
		return err
	}

	defer s.Close()

	return s.Describe(os.Stdout)
}
