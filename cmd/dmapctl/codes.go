package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCodesCmd(opts *rootOpts) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "List the content codes of the built dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			list := svc.Dictionary().Codes()
			sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tNAME\tKIND")
			for _, code := range list {
				if !strings.HasPrefix(code.Name, prefix) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", code.Tag, code.Name, code.Kind)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list names with this prefix")
	return cmd
}
