package models

// FlowStatus represents the current state of a flow backend.
type FlowStatus string

const (
	// FlowStatusOffline indicates the flow has not been initialized or
	// has been shut down.
	FlowStatusOffline FlowStatus = "offline"
	// FlowStatusAvailable indicates the flow can accept tasks.
	FlowStatusAvailable FlowStatus = "available"
	// FlowStatusBusy indicates the flow is at its load limit.
	FlowStatusBusy FlowStatus = "busy"
	// FlowStatusError indicates the flow hit an unrecoverable condition.
	// The state is sticky until a status reset or successful health check.
	FlowStatusError FlowStatus = "error"
)

// Valid returns true if the status is a known value.
func (s FlowStatus) Valid() bool {
	switch s {
	case FlowStatusOffline, FlowStatusAvailable, FlowStatusBusy, FlowStatusError:
		return true
	default:
		return false
	}
}

// FlowType tags the class of backend behind a flow.
type FlowType string

const (
	// FlowTypeClaude is a coding-specialist backend.
	FlowTypeClaude FlowType = "claude"
	// FlowTypeGemini is a multimodal-capable backend.
	FlowTypeGemini FlowType = "gemini"
	// FlowTypeOpenAI is a general reasoning backend.
	FlowTypeOpenAI FlowType = "openai"
	// FlowTypeCoordinator is a coordination-class backend for
	// orchestration and high-priority work.
	FlowTypeCoordinator FlowType = "coordinator"
	// FlowTypeLocal is a privacy-capable local-inference backend.
	FlowTypeLocal FlowType = "local"
	// FlowTypeMock is the deterministic test backend.
	FlowTypeMock FlowType = "mock"
)

// Valid returns true if the type is a known value.
func (t FlowType) Valid() bool {
	switch t {
	case FlowTypeClaude, FlowTypeGemini, FlowTypeOpenAI, FlowTypeCoordinator, FlowTypeLocal, FlowTypeMock:
		return true
	default:
		return false
	}
}

// FlowInstance is the registry-visible snapshot of a flow adapter.
// Invariant: 0 <= CurrentLoad <= MaxLoad; Status is busy iff
// CurrentLoad == MaxLoad and available iff CurrentLoad < MaxLoad
// (when not offline or in error).
type FlowInstance struct {
	// Name is the unique key of the flow.
	Name string `json:"name"`
	// Type tags the backend class behind the adapter.
	Type FlowType `json:"type"`
	// Capabilities lists the capability tags the flow declares.
	Capabilities []string `json:"capabilities"`
	// Status is the current lifecycle state.
	Status FlowStatus `json:"status"`
	// CurrentLoad is the number of tasks in flight on this flow.
	CurrentLoad int `json:"current_load"`
	// MaxLoad is the load ceiling, fixed at construction.
	MaxLoad int `json:"max_load"`
}

// HasCapability reports whether the flow declares the given capability.
func (f *FlowInstance) HasCapability(capability string) bool {
	for _, c := range f.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// LoadRatio returns CurrentLoad/MaxLoad in [0,1].
func (f *FlowInstance) LoadRatio() float64 {
	if f.MaxLoad <= 0 {
		return 1
	}
	return float64(f.CurrentLoad) / float64(f.MaxLoad)
}
