package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/metrics"
	"github.com/flowdeck/flowdeck/internal/tui"
	"github.com/flowdeck/flowdeck/pkg/models"
)

var (
	watchMetrics bool
	watchDemo    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of flow activity",
	Long: `Open a terminal dashboard showing flow status, load, coordinator
counters, and the live event feed.

When a flows file is configured it is watched for changes and the
registry hot-reloads. --metrics serves Prometheus metrics alongside the
dashboard; --demo feeds synthetic tasks through the coordinator so the
dashboard has something to show.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchMetrics, "metrics", false, "Serve Prometheus metrics while watching")
	watchCmd.Flags().BoolVar(&watchDemo, "demo", false, "Delegate synthetic tasks while watching")
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	sources := tui.Sources{
		Flows:    rt.registry.Snapshot,
		Metrics:  rt.coord.PerformanceMetrics,
		InFlight: func() int { return rt.coord.SystemStatus().InFlight },
	}
	p, _ := tui.NewProgram(sources, rt.cfg.TUI.RefreshRate)

	// Hot-reload the flows file into the registry.
	flowsPath := flagFlowsFile
	if flowsPath == "" {
		flowsPath = rt.cfg.FlowsFile
	}
	if flowsPath != "" {
		watcher, err := config.WatchFlows(flowsPath, func(fc *config.FlowsConfig) {
			syncFlows(rt, fc)
		})
		if err != nil {
			log.Printf("[cli] flows watcher disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	// One drain loop feeds both the dashboard and the metric set.
	var m *metrics.Metrics
	if watchMetrics || rt.cfg.Metrics.Enabled {
		m = metrics.New("flowdeck")
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		server := &http.Server{Addr: rt.cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[cli] metrics server: %v", err)
			}
		}()
		defer server.Close()
		fmt.Printf("serving metrics on %s/metrics\n", rt.cfg.Metrics.ListenAddr)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-rt.emitter.Events():
				if !ok {
					return
				}
				if m != nil {
					m.Observe(ev)
					m.EventsDropped.Set(float64(rt.emitter.DroppedCount()))
				}
				p.Send(tui.FlowEventMsg(ev))
			}
		}
	}()

	if watchDemo {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go runDemoTasks(ctx, rt)
	}

	_, err = p.Run()
	return err
}

// runDemoTasks delegates a synthetic task every few seconds so the
// dashboard shows live activity.
func runDemoTasks(ctx context.Context, rt *runtime) {
	demos := []struct {
		description string
		taskType    models.TaskType
	}{
		{"implement a rate limiter", models.TaskTypeCodeGeneration},
		{"research caching strategies", models.TaskTypeResearch},
		{"analyze dispatch latency", models.TaskTypeAnalysis},
		{"document the flows file format", models.TaskTypeDocumentation},
	}

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			demo := demos[rand.Intn(len(demos))]
			task := models.NewTask(demo.description, demo.taskType, 1+rand.Intn(5))
			go rt.coord.Delegate(ctx, task) //nolint:errcheck
		}
	}
}
