package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/pkg/models"
)

var (
	routeType     string
	routePriority int
	routeDryRun   bool
)

var routeCmd = &cobra.Command{
	Use:   "route <task>",
	Short: "Auto-route a task through the portal",
	Long: `Route a task to the best flow using heuristic scoring.

The portal scores every available flow on availability, idle capacity,
capability overlap, and historical success for similar tasks, then
executes on the winner. Successful routes are cached per task pattern;
failed routes fall through the configured fallback chain.

Use --dry-run to see the routing decision without executing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: routeTask,
}

func init() {
	routeCmd.Flags().StringVar(&routeType, "type", "general", "Task type (code-generation, research, analysis, ...)")
	routeCmd.Flags().IntVar(&routePriority, "priority", 1, "Task priority")
	routeCmd.Flags().BoolVar(&routeDryRun, "dry-run", false, "Show the routing decision without executing")
}

func routeTask(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	description := strings.Join(args, " ")
	task := models.NewTask(description, models.TaskType(routeType), routePriority)

	if routeDryRun {
		flow, err := rt.portal.RecommendFlow(task)
		if err != nil {
			return fmt.Errorf("recommend flow: %w", err)
		}
		fmt.Printf("would route to: %s\n", flow)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := rt.portal.RouteTask(ctx, task)
	if err != nil {
		return fmt.Errorf("route task: %w", err)
	}

	printResult(result, time.Since(start))
	if !result.Success {
		return fmt.Errorf("task failed on flow %q", result.FlowName)
	}
	return nil
}
