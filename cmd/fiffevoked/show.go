package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/batchatco/go-native-fiff/fiff/evoked"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

func newShowCmd() *cobra.Command {
	var (
		set int
		bl  baselineFlags
	)
	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the measurement info and channel ranges of one data set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := evoked.Read(args[0], set, bl.baseline(cmd))
			if err != nil {
				return err
			}
			show(cmd.OutOrStdout(), ev)
			return nil
		},
	}
	cmd.Flags().IntVar(&set, "set", 0, "data set to show, numbered from zero")
	bl.register(cmd)
	return cmd
}

func show(w io.Writer, ev *evoked.Evoked) {
	info := ev.Info
	fmt.Fprintf(w, "comment:  %s\n", ev.Comment)
	fmt.Fprintf(w, "aspect:   %d (nave %d)\n", ev.AspectKind, ev.Nave)
	fmt.Fprintf(w, "samples:  %d ... %d at %g Hz (%.3f ... %.3f s)\n",
		ev.First, ev.Last, info.SFreq, ev.Times[0], ev.Times[len(ev.Times)-1])
	fmt.Fprintf(w, "filter:   %g ... %g Hz\n", info.Highpass, info.Lowpass)
	fmt.Fprintf(w, "channels: %d (%d bad)\n", info.NChan, len(info.Bads))
	if len(info.Bads) > 0 {
		fmt.Fprintf(w, "bads:     %s\n", strings.Join(info.Bads, ", "))
	}
	fmt.Fprintf(w, "projectors: %d, compensators: %d, digitizer points: %d\n",
		len(info.Projs), len(info.Comps), len(info.Dig))
	for k, ch := range info.Chs {
		row := ev.Data.RawRowView(k)
		fmt.Fprintf(w, "  %-16s %12.4g %12.4g\n", ch.Name, floats.Min(row), floats.Max(row))
	}
}
