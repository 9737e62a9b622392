// Package portal implements the heuristic auto-router: it infers task
// capabilities, scores available flows, caches routing decisions, and
// learns from execution outcomes.
package portal

import (
	"strings"

	"github.com/flowdeck/flowdeck/pkg/models"
)

// Capability tags inferred from tasks and declared by flows.
const (
	CapCoding         = "coding"
	CapResearch       = "research"
	CapAnalysis       = "analysis"
	CapDocumentation  = "documentation"
	CapTesting        = "testing"
	CapMultimodal     = "multimodal"
	CapReasoning      = "reasoning"
	CapLocalInference = "local-inference"
	CapCoordination   = "coordination"
)

// typeCapabilities maps each task type to its implied capability tags.
var typeCapabilities = map[models.TaskType][]string{
	models.TaskTypeCodeGeneration: {CapCoding},
	models.TaskTypeCodeReview:     {CapCoding},
	models.TaskTypeRefactoring:    {CapCoding},
	models.TaskTypeResearch:       {CapResearch},
	models.TaskTypeAnalysis:       {CapAnalysis},
	models.TaskTypeDocumentation:  {CapDocumentation},
	models.TaskTypeTesting:        {CapTesting, CapCoding},
	models.TaskTypeOrchestration:  {CapCoordination},
}

// capabilityKeywords maps capability tags to the description keywords that
// imply them. Scanned case-insensitively.
var capabilityKeywords = []struct {
	capability string
	keywords   []string
}{
	{CapCoding, []string{"code", "implement", "function", "debug", "bug", "refactor", "compile", "api"}},
	{CapResearch, []string{"research", "investigate", "explore", "find out", "look up", "compare"}},
	{CapAnalysis, []string{"analyze", "analysis", "evaluate", "metrics", "data", "profile"}},
	{CapMultimodal, []string{"image", "visual", "picture", "diagram", "screenshot", "photo"}},
	{CapReasoning, []string{"reason", "plan", "design", "architect", "strategy", "decide"}},
	{CapLocalInference, []string{"private", "confidential", "sensitive", "local", "offline"}},
	{CapCoordination, []string{"coordinate", "orchestrate", "delegate", "workflow", "multi-step"}},
}

// InferCapabilities derives the capability tags a task requires: the fixed
// mapping for its declared type, unioned with keyword hits against the
// description. Duplicates are removed; insertion order is preserved so the
// type-implied tags come first.
func InferCapabilities(task *models.Task) []string {
	var tags []string
	seen := make(map[string]bool)

	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	for _, tag := range typeCapabilities[task.Type] {
		add(tag)
	}

	desc := strings.ToLower(task.Description)
	for _, entry := range capabilityKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(desc, kw) {
				add(entry.capability)
				break
			}
		}
	}

	return tags
}

// Length buckets for pattern generation.
const (
	lengthBucketShort  = "short"  // < 100 chars
	lengthBucketMedium = "medium" // < 500 chars
	lengthBucketLong   = "long"
)

func lengthBucket(description string) string {
	switch n := len(description); {
	case n < 100:
		return lengthBucketShort
	case n < 500:
		return lengthBucketMedium
	default:
		return lengthBucketLong
	}
}

// Pattern computes the coarse task digest used as the cache and history
// key: the first three characters of the type tag, the description length
// bucket, and the top two inferred capabilities, joined by colons.
// Deterministic for a given task.
func Pattern(task *models.Task) string {
	typeTag := string(task.Type)
	if len(typeTag) > 3 {
		typeTag = typeTag[:3]
	}

	caps := InferCapabilities(task)
	if len(caps) > 2 {
		caps = caps[:2]
	}

	parts := []string{typeTag, lengthBucket(task.Description)}
	if len(caps) > 0 {
		parts = append(parts, strings.Join(caps, ":"))
	}
	return strings.Join(parts, ":")
}
