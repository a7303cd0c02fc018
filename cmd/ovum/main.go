// Command ovum is the CLI front end for the Ovum bytecode VM: it loads a
// bytecode source file, runs it, and exits with the program's returned
// status code (spec §6's CLI surface).
package main

import (
	"fmt"
	"os"

	"github.com/kristofer/ovum/pkg/driver"
	"github.com/kristofer/ovum/pkg/jit"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ovum",
		Short:         "Run Ovum bytecode programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		sourcePath    string
		jitThreshold  int64
		heapThreshold int
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a bytecode source file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourcePath == "" {
				return fmt.Errorf("-f <path> is required")
			}

			programArgs := args
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				programArgs = args[dash:]
			}

			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

			opts := driver.Options{
				JITThreshold:  jitThreshold,
				HeapThreshold: heapThreshold,
				Stdin:         os.Stdin,
				Stdout:        os.Stdout,
				Stderr:        os.Stderr,
				Log:           log,
			}
			if jitThreshold > 0 {
				opts.NewExecutor = func() jit.Executor { return jit.Stub{} }
			}

			exitCode, err := driver.Run(sourcePath, programArgs, opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(int(exitCode))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourcePath, "file", "f", "", "bytecode source file to run")
	cmd.Flags().Int64VarP(&jitThreshold, "jit", "j", 0, "JIT action-count threshold (0 disables JIT)")
	cmd.Flags().IntVar(&heapThreshold, "heap-threshold", 1<<16, "heap collection threshold in live objects (no collection runs during a run)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	return cmd
}
