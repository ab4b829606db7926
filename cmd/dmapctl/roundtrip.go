package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRoundTripCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip [file|-]",
		Short: "Check that decoding and re-encoding reproduces the input bytes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			buf, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			report, err := svc.RoundTrip(buf)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "items=%d in=%d out=%d identical=%t\n",
				report.Items, report.InputBytes, report.OutputBytes, report.Identical)
			if !report.Identical {
				return fmt.Errorf("re-encoded bytes differ at offset %d", report.FirstDiff)
			}
			return nil
		},
	}
}
