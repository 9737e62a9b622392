package portal

import (
	"strings"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/pkg/models"
)

// Scoring weights. All terms are additive and sized so no single term
// dominates: the weights are normative, not incidental.
const (
	scoreAvailable       = 10.0
	scoreIdleWeight      = 5.0
	scoreCapabilityMatch = 3.0
	scoreHistoryWeight   = 2.0

	bonusCoordination = 2.0
	bonusMultimodal   = 3.0
	bonusPrivacy      = 2.0
	bonusCoding       = 1.0

	// coordinationPriorityThreshold marks tasks urgent enough to earn
	// the coordination-class bonus regardless of type.
	coordinationPriorityThreshold = 3
)

var visualTerms = []string{"image", "visual", "picture", "diagram", "screenshot", "photo"}
var privacyTerms = []string{"private", "confidential", "sensitive"}

// scoreFlow computes the routing score for one available flow.
// Only available flows are ever scored; offline, busy, and errored flows
// never enter the candidate set.
func scoreFlow(a *flow.Adapter, task *models.Task, inferred []string, successRate float64) float64 {
	snap := a.Snapshot()

	score := scoreAvailable
	score += scoreIdleWeight * (1 - snap.LoadRatio())
	score += scoreCapabilityMatch * float64(capabilityOverlap(snap.Capabilities, inferred))
	score += scoreHistoryWeight * successRate
	score += typeBonus(snap, task)
	return score
}

// capabilityOverlap counts the tags present in both sets.
func capabilityOverlap(declared, inferred []string) int {
	set := make(map[string]bool, len(declared))
	for _, c := range declared {
		set[c] = true
	}
	overlap := 0
	for _, c := range inferred {
		if set[c] {
			overlap++
		}
	}
	return overlap
}

// typeBonus awards the fixed per-backend-class bonuses. Bonuses are
// independent and summable.
func typeBonus(snap models.FlowInstance, task *models.Task) float64 {
	desc := strings.ToLower(task.Description)
	bonus := 0.0

	if snap.Type == models.FlowTypeCoordinator &&
		(task.Type == models.TaskTypeOrchestration || task.Priority >= coordinationPriorityThreshold) {
		bonus += bonusCoordination
	}
	if snap.Type == models.FlowTypeGemini && containsAny(desc, visualTerms) {
		bonus += bonusMultimodal
	}
	if privacyCapable(snap) && containsAny(desc, privacyTerms) {
		bonus += bonusPrivacy
	}
	if snap.Type == models.FlowTypeClaude &&
		(task.Type == models.TaskTypeCodeGeneration || task.Type == models.TaskTypeCodeReview) {
		bonus += bonusCoding
	}
	return bonus
}

func privacyCapable(snap models.FlowInstance) bool {
	if snap.Type == models.FlowTypeLocal {
		return true
	}
	return snap.HasCapability(CapLocalInference)
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
