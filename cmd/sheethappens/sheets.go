package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens"
)

func newSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets input.xlsx",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := sheethappens.Open(args[0], sheethappens.WithLogger(logger))
			if err != nil {
				return err
			}
			defer b.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "POS\tNAME\tVISIBILITY\tPART\tSIZE")
			for _, s := range b.Sheets() {
				part, size := "-", "-"
				if e, ok := s.Entry(); ok {
					part, size = e.Name, humanize.Bytes(e.UncompressedSize)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.Position(), s.Name(), s.Visibility(), part, size)
			}
			return tw.Flush()
		},
	}
}
