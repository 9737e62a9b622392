package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/pkg/models"
)

var (
	runType     string
	runPriority int
	runStrategy string
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Delegate a task through the coordinator",
	Long: `Delegate a task to a flow using the configured coordination strategy.

The coordinator picks a flow, executes the task with a timeout, and
retries with exponential backoff on failure. Every decision is written
to the delegation audit log.

Strategies (--strategy):
  capability-based  most matching declared capabilities
  load-balanced     lowest current load ratio
  adaptive          capability match weighed against idle capacity (default)
  priority-based    high-priority tasks pinned to the primary flow
  round-robin       fixed cyclic order over available flows`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVar(&runType, "type", "general", "Task type (code-generation, research, analysis, ...)")
	runCmd.Flags().IntVar(&runPriority, "priority", 1, "Task priority; higher values reach the priority threshold")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Override the configured coordination strategy")
}

func runTask(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	description := strings.Join(args, " ")
	task := models.NewTask(description, models.TaskType(runType), runPriority)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := rt.coord.Delegate(ctx, task)
	if err != nil {
		return fmt.Errorf("delegate task: %w", err)
	}

	printResult(result, time.Since(start))
	if !result.Success {
		return fmt.Errorf("task failed on flow %q", result.FlowName)
	}
	return nil
}

// printResult renders an execution result with colored status.
func printResult(result *models.ExecutionResult, elapsed time.Duration) {
	if result.Success {
		ok := color.New(color.FgGreen)
		fmt.Printf("%s flow=%s duration=%s\n", ok.Sprint("✓"), result.FlowName, elapsed.Round(time.Millisecond))
		if result.Output != "" {
			fmt.Println()
			fmt.Println(result.Output)
		}
		return
	}

	bad := color.New(color.FgRed)
	fmt.Printf("%s flow=%s duration=%s\n", bad.Sprint("✗"), result.FlowName, elapsed.Round(time.Millisecond))
	if result.Error != "" {
		fmt.Printf("  %s\n", result.Error)
	}
}
