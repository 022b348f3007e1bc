package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/series"
	"github.com/spf13/cobra"
)

// NewSortCmd lists the slices of a series in the order the converters use
func NewSortCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort <series-dir>",
		Short: "list the slices of a series in through-plane order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := series.Load(ctx, args[0])
			if err != nil {
				return err
			}
			g := s.Grid()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "sorted by %s: %s\n", s.Key.LookupName(), g)
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tINSTANCE\tPOSITION\tPATH\tSOPINSTANCEUID")
			for i, sl := range s.Slices {
				fmt.Fprintf(tw, "%d\t%d\t%g\t%s\t%s\n", i, dicom.GetInstanceNumber(sl.Dataset), sl.Position, sl.Path, sl.SOPInstanceUID())
			}
			return tw.Flush()
		},
	}
	return cmd
}
