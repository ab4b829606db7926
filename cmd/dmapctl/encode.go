package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newEncodeCmd(opts *rootOpts) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "encode [file|-]",
		Short: "Encode a JSON tree (as printed by decode --json) to DMAP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var doc itemsDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parse items: %w", err)
			}
			out, err := svc.Encode(doc.Items)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(output, out, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write DMAP bytes here instead of stdout")
	return cmd
}
