package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/batchatco/go-native-fiff/fiff"
	"github.com/batchatco/go-native-fiff/fiff/evoked"
	"github.com/batchatco/go-native-fiff/fiff/meas"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list FILE",
		Short: "List the evoked data sets of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fiff.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, measNode, err := meas.Read(f)
			if err != nil {
				return err
			}
			sets, err := evoked.Sets(f.Tree, measNode)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SET\tCOMMENT\tKIND\tNAVE\tSHIELDED\tTMIN\tTMAX\tSAMPLES")
			for i, u := range evoked.Units(sets) {
				ev, err := evoked.Assemble(f, u, info, nil)
				if err != nil {
					return fmt.Errorf("set %d: %w", i, err)
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%t\t%.3f\t%.3f\t%d\n",
					i, ev.Comment, ev.AspectKind, ev.Nave, u.Shielded,
					ev.Times[0], ev.Times[len(ev.Times)-1], ev.NSamp())
			}
			return tw.Flush()
		},
	}
}
