package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var (
	statusRecent int
	statusPurge  time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show coordination and routing state",
	Long: `Display flow availability, coordinator performance counters,
portal routing statistics, and the audited delegation log.

--purge-older-than deletes audit rows past the given age before reporting,
e.g. --purge-older-than 720h.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusRecent, "recent", 10, "Number of recent delegations to show")
	statusCmd.Flags().DurationVar(&statusPurge, "purge-older-than", 0, "Delete audited delegations older than this duration")
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	if statusPurge > 0 {
		purged, err := rt.db.PurgeOldDelegations(statusPurge)
		if err != nil {
			return fmt.Errorf("purge delegations: %w", err)
		}
		fmt.Printf("Purged %d audited delegations older than %s\n\n", purged, statusPurge)
	}

	status := rt.coord.SystemStatus()
	fmt.Printf("Strategy: %s (in flight %d/%d)\n", status.Strategy, status.InFlight, status.MaxConcurrentTasks)
	fmt.Println()

	fmt.Println("Flows:")
	for _, f := range status.Flows {
		fmt.Printf("  %-18s %s  load %d/%d\n", f.Name, statusLabel(f.Status), f.CurrentLoad, f.MaxLoad)
	}
	fmt.Println()

	metrics := rt.coord.PerformanceMetrics()
	fmt.Println("Coordinator:")
	fmt.Printf("  delegations: %d (✓%d ✗%d)\n", metrics.TotalDelegations, metrics.Succeeded, metrics.Failed)
	if metrics.TotalDelegations > 0 {
		fmt.Printf("  success rate: %.0f%%\n", metrics.SuccessRate*100)
		fmt.Printf("  avg duration: %s\n", metrics.AverageDuration.Round(time.Millisecond))
	}
	fmt.Println()

	routing := rt.portal.Stats()
	fmt.Println("Portal:")
	fmt.Printf("  routed: %d\n", routing.TotalRouted)
	fmt.Printf("  outcome history: %d (cache hit rate %.0f%%)\n", routing.HistoryLength, routing.CacheHitRate*100)
	for flowName, count := range routing.FlowUsage {
		rate := routing.FlowSuccessRates[flowName]
		fmt.Printf("  %-18s used %d, %.0f%% ok\n", flowName, count, rate*100)
	}
	fmt.Println()

	counts, err := rt.db.CountDelegationsByFlow()
	if err != nil {
		return fmt.Errorf("count delegations: %w", err)
	}
	if len(counts) > 0 {
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("Audited delegations per flow:")
		for _, name := range names {
			fmt.Printf("  %-18s %d\n", name, counts[name])
		}
		fmt.Println()
	}

	records, err := rt.db.ListRecentDelegations(statusRecent)
	if err != nil {
		return fmt.Errorf("list recent delegations: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No audited delegations yet. Run 'flowdeck run <task>' to start.")
		return nil
	}

	fmt.Println("Recent delegations:")
	for _, rec := range records {
		fmt.Printf("  %s  %-18s %-18s conf %.2f  %s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
			rec.Flow, rec.Strategy, rec.Confidence, rec.Reason)
	}
	return nil
}
