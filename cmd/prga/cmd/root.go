package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "prga",
	Short: "FPGA architecture elaboration",
	Long: `Build an FPGA architecture from a YAML description and elaborate it into a
complete physical circuit: routing completion, finalization and configuration
chain injection.

Examples:
  prga elaborate                              # Elaborate the built-in demo
  prga elaborate -c arch.yaml --bitmap map.yaml
  prga passes                                 # List passes in execution order`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity")
}

func logger() logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}
