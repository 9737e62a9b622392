package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagFlowsFile string
	flagDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "flowdeck",
	Short: "Task dispatch across AI backend flows",
	Long: `Flowdeck routes tasks across a registry of AI backend flows.

Each flow wraps one backend (Claude, Gemini, OpenAI, or a local mock)
behind a capacity-limited adapter. Tasks are dispatched two ways:

  route   heuristic auto-routing with outcome learning and fallback
  run     strategy-driven delegation through the coordinator

Flows are defined in a YAML flows file (see 'flowdeck flows') and
providers authenticate via ANTHROPIC_API_KEY, OPENAI_API_KEY and
GEMINI_API_KEY.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFlowsFile, "flows", "", "Path to the flows YAML file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(flowsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
