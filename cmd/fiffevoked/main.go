// Command fiffevoked lists, inspects and converts evoked responses stored in
// FIFF files.
package main

import (
	"fmt"
	"os"

	"github.com/batchatco/go-native-fiff/fiff"
	"github.com/batchatco/go-native-fiff/fiff/evoked"
	"github.com/batchatco/go-native-fiff/internal"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	logLevel int
	logFile  string
}

type baselineFlags struct {
	min, max float64
}

// baseline returns the window given on the command line, nil when neither
// bound was set.
func (b *baselineFlags) baseline(cmd *cobra.Command) *evoked.Baseline {
	var bl evoked.Baseline
	if cmd.Flags().Changed("baseline-min") {
		bl.Min = &b.min
	}
	if cmd.Flags().Changed("baseline-max") {
		bl.Max = &b.max
	}
	if bl.Min == nil && bl.Max == nil {
		return nil
	}
	return &bl
}

func (b *baselineFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&b.min, "baseline-min", 0, "start of the baseline window in seconds (default: first sample)")
	cmd.Flags().Float64Var(&b.max, "baseline-max", 0, "end of the baseline window in seconds (default: last sample)")
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "fiffevoked",
		Short:         "Inspect and convert evoked responses in FIFF files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.logLevel < 0 || flags.logLevel > 3 {
				return fmt.Errorf("log level %d: want 0 to 3", flags.logLevel)
			}
			fiff.SetLogLevel(flags.logLevel)
			if flags.logFile != "" {
				internal.Default().SetFile(flags.logFile, 10, 3)
			}
			return nil
		},
	}
	root.PersistentFlags().IntVar(&flags.logLevel, "log-level", 2, "0 fatal, 1 errors, 2 warnings, 3 progress messages")
	root.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "write log lines to a rotated file instead of stderr")

	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newConvertCmd())
	return root
}

func main() {
	err := newRootCmd().Execute()
	_ = internal.Default().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fiffevoked: %v\n", err)
		os.Exit(1)
	}
}
