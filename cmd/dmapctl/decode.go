package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/danmuck/dmapctl/internal/protocol/value"
)

// itemsDocument is the JSON shape shared by decode output and encode input.
type itemsDocument struct {
	Items []value.Item `json:"items"`
}

func newDecodeCmd(opts *rootOpts) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Decode a DMAP message and print its tree",
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
			items, err := svc.Decode(buf)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(itemsDocument{Items: items})
			}
			return value.Fprint(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	return cmd
}
