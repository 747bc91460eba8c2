package main

import (
	"fmt"

	"github.com/batchatco/go-native-fiff/fiff/compress"
	"github.com/batchatco/go-native-fiff/fiff/evoked"
	"github.com/batchatco/go-native-fiff/fiff/meas"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	var (
		sets    []int
		format  string
		noCarry bool
		bl      baselineFlags
	)
	cmd := &cobra.Command{
		Use:   "convert SRC DST",
		Short: "Copy evoked data sets to a new file",
		Long: `Copy evoked data sets to a new file, optionally baseline corrected and
compressed. All data sets are copied unless --set is given. The container of
DST follows its extension (.gz, .zst, .lz4) unless --compress is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := evoked.DefaultConfig(args[1])
			cfg.CarryOver = !noCarry
			if cmd.Flags().Changed("compress") {
				f, err := compress.ParseFormat(format)
				if err != nil {
					return err
				}
				cfg.Compression = f
			}
			datasets, err := readSets(args[0], sets, bl.baseline(cmd))
			if err != nil {
				return err
			}
			if err := evoked.WriteFile(args[1], cfg, datasets...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d data sets to %s (%s)\n", len(datasets), args[1], cfg.Compression)
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&sets, "set", nil, "data sets to copy, numbered from zero (default: all)")
	cmd.Flags().StringVar(&format, "compress", "", "output container: none, gzip, zstd or lz4")
	cmd.Flags().BoolVar(&noCarry, "no-carry-over", false, "do not copy subject, HPI, digitizer and history blocks")
	bl.register(cmd)
	return cmd
}

// readSets reads the selected data sets of path, every one when sets is
// empty.
func readSets(path string, sets []int, baseline *evoked.Baseline) ([]*evoked.Evoked, error) {
	f, err := tree.OpenMemory(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if len(sets) == 0 {
		_, measNode, err := meas.Read(f)
		if err != nil {
			return nil, err
		}
		all, err := evoked.Sets(f.Tree, measNode)
		if err != nil {
			return nil, err
		}
		for i := range evoked.Units(all) {
			sets = append(sets, i)
		}
	}
	datasets := make([]*evoked.Evoked, len(sets))
	for i, set := range sets {
		ev, err := evoked.ReadFile(f, set, baseline)
		if err != nil {
			return nil, fmt.Errorf("set %d: %w", set, err)
		}
		datasets[i] = ev
	}
	return datasets, nil
}
