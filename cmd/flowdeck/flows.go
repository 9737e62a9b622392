package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/pkg/models"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List registered flows and provider keys",
	RunE:  listFlows,
}

func listFlows(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println("Flows:")
	for _, f := range rt.registry.Snapshot() {
		caps := strings.Join(f.Capabilities, ", ")
		if caps == "" {
			caps = "-"
		}
		fmt.Printf("  %-18s %-12s %s  load %d/%d  [%s]\n",
			f.Name, f.Type, statusLabel(f.Status), f.CurrentLoad, f.MaxLoad, caps)
	}

	fmt.Println()
	fmt.Println("Provider keys:")
	providers := []config.Provider{config.ProviderAnthropic, config.ProviderOpenAI, config.ProviderGemini}
	for _, p := range providers {
		source := config.GetAPIKeySource(rt.cfg, p)
		key, err := config.GetAPIKey(rt.cfg, p)
		display := "(not set)"
		if err == nil {
			display = config.MaskAPIKey(key)
		}
		fmt.Printf("  %-10s %-12s %s\n", p, source, display)
	}
	return nil
}

// statusLabel renders a flow status with color.
func statusLabel(status models.FlowStatus) string {
	switch status {
	case models.FlowStatusAvailable:
		return color.New(color.FgGreen).Sprint("available")
	case models.FlowStatusBusy:
		return color.New(color.FgYellow).Sprint("busy     ")
	case models.FlowStatusError:
		return color.New(color.FgRed).Sprint("error    ")
	default:
		return color.New(color.FgHiBlack).Sprint("offline  ")
	}
}
