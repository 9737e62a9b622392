package portal

import (
	"reflect"
	"strings"
	"testing"

	"github.com/flowdeck/flowdeck/pkg/models"
)

func TestInferCapabilities(t *testing.T) {
	tests := []struct {
		name        string
		taskType    models.TaskType
		description string
		want        []string
	}{
		{
			name:        "code generation implies coding",
			taskType:    models.TaskTypeCodeGeneration,
			description: "implement function",
			want:        []string{CapCoding},
		},
		{
			name:        "testing implies testing and coding",
			taskType:    models.TaskTypeTesting,
			description: "add coverage",
			want:        []string{CapTesting, CapCoding},
		},
		{
			name:        "research type plus analysis keyword",
			taskType:    models.TaskTypeResearch,
			description: "research and analyze market data",
			want:        []string{CapResearch, CapAnalysis},
		},
		{
			name:        "keyword scan is case-insensitive",
			taskType:    models.TaskTypeGeneral,
			description: "Review the SCREENSHOT and the Diagram",
			want:        []string{CapMultimodal},
		},
		{
			name:        "duplicates removed",
			taskType:    models.TaskTypeCodeGeneration,
			description: "implement code for the code review",
			want:        []string{CapCoding},
		},
		{
			name:        "general type with no keywords",
			taskType:    models.TaskTypeGeneral,
			description: "hello there",
			want:        nil,
		},
		{
			name:        "privacy keywords imply local inference",
			taskType:    models.TaskTypeGeneral,
			description: "summarize this confidential memo",
			want:        []string{CapLocalInference},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := models.NewTask(tt.description, tt.taskType, 1)
			got := InferCapabilities(task)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InferCapabilities() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPattern(t *testing.T) {
	tests := []struct {
		name        string
		taskType    models.TaskType
		description string
		want        string
	}{
		{
			name:        "short coding task",
			taskType:    models.TaskTypeCodeGeneration,
			description: "implement function",
			want:        "cod:short:coding",
		},
		{
			name:        "medium research task",
			taskType:    models.TaskTypeResearch,
			description: strings.Repeat("find prior art ", 10),
			want:        "res:medium:research",
		},
		{
			name:        "long task",
			taskType:    models.TaskTypeAnalysis,
			description: strings.Repeat("analyze the numbers ", 30),
			want:        "ana:long:analysis",
		},
		{
			name:        "top two capabilities only",
			taskType:    models.TaskTypeTesting,
			description: "test the code and analyze results",
			want:        "tes:short:testing:coding",
		},
		{
			name:        "no capabilities",
			taskType:    models.TaskTypeGeneral,
			description: "hello",
			want:        "gen:short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := models.NewTask(tt.description, tt.taskType, 1)
			if got := Pattern(task); got != tt.want {
				t.Errorf("Pattern() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPattern_Deterministic(t *testing.T) {
	a := models.NewTask("implement the parser", models.TaskTypeCodeGeneration, 2)
	b := models.NewTask("implement the parser", models.TaskTypeCodeGeneration, 5)
	if Pattern(a) != Pattern(b) {
		t.Errorf("Pattern() differs for identical type/description: %q vs %q", Pattern(a), Pattern(b))
	}
}
