// Command embervm runs a compiled Java class file or main class on the
// embervm interpreter.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/embervm/embervm/internal/config"
	"github.com/embervm/embervm/internal/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:          "embervm [flags] <main-class> [args...]",
		Short:        "A Java Virtual Machine written in Go",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			cfg.MainClass = cliArgs[0]
			cfg.Args = cliArgs[1:]
			return nil
		},
	}
	root.Flags().StringVar(&cfg.ClassPath, "cp", "", "user class path (colon-separated)")
	root.Flags().StringVar(&cfg.BootClassPath, "bootclasspath", "", "(-Xbootclasspath) boot class path (colon-separated)")
	root.Flags().BoolVar(&cfg.NoSystemClassLoader, "no-system-classloader", false, "(-XXnosystemclassloader) bypass system loader for main class")
	root.Flags().BoolVar(&cfg.Debug, "debug", false, "verbose (development-mode zap) logging")

	root.SetArgs(argv)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "embervm: %v\n", err)
		return vm.ExitInitFailure
	}

	if cfg.ClassPath == "" {
		cfg.ClassPath = "."
	}

	machine, err := vm.Bootstrap(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "embervm: %v\n", err)
		return vm.ExitInitFailure
	}
	defer machine.Log.Sync()

	return machine.Run(cfg.MainClass, cfg.Args)
}
