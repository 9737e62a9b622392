package main

import (
	"fmt"
	"log"

	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/coordinator"
	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/portal"
	"github.com/flowdeck/flowdeck/internal/registry"
	"github.com/flowdeck/flowdeck/internal/state"
	"github.com/flowdeck/flowdeck/pkg/models"
)

// eventBuffer sizes the shared emitter channel.
const eventBuffer = 100

// runtime bundles the wired components behind every subcommand.
type runtime struct {
	cfg      *config.Config
	flows    *config.FlowsConfig
	emitter  *flow.Emitter
	registry *registry.Registry
	portal   *portal.Portal
	coord    *coordinator.Coordinator
	db       *state.DB
}

// buildRuntime loads configuration, registers the configured flows, and
// wires the portal and coordinator. withAudit opens the delegation audit
// database; commands that only read flow state skip it.
func buildRuntime(withAudit bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDebug {
		cfg.Portal.Debug = true
		cfg.Coordination.Debug = true
	}
	if runStrategy != "" {
		cfg.Coordination.Strategy = runStrategy
	}

	flows, err := loadFlows(cfg)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		flows:    flows,
		emitter:  flow.NewEmitter(eventBuffer),
		registry: registry.New(),
	}

	registerFlows(rt, flows)
	if rt.registry.Count() == 0 {
		return nil, fmt.Errorf("no usable flows; check API keys and the flows file")
	}

	rt.portal = portal.New(rt.registry, portal.Config{
		DefaultFlow:   cfg.Portal.DefaultFlow,
		AutoDetect:    cfg.Portal.AutoDetect,
		FallbackChain: cfg.Portal.FallbackChain,
		Debug:         cfg.Portal.Debug,
	})

	opts := []coordinator.Option{coordinator.WithEmitter(rt.emitter)}
	if withAudit {
		dbPath := cfg.State.Path
		if dbPath == "" {
			dbPath = config.DefaultStatePath()
		}
		db, err := state.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open audit database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate audit database: %w", err)
		}
		rt.db = db
		opts = append(opts, coordinator.WithAuditSink(db))
	}

	rt.coord, err = coordinator.New(rt.registry, coordinator.Config{
		Strategy:           coordinator.Strategy(cfg.Coordination.Strategy),
		MaxConcurrentTasks: cfg.Coordination.MaxConcurrentTasks,
		TaskTimeout:        cfg.Coordination.TaskTimeout,
		MaxRetries:         cfg.Coordination.MaxRetries,
		BackoffMultiplier:  cfg.Coordination.BackoffMultiplier,
		InitialDelay:       cfg.Coordination.InitialDelay,
		PrimaryFlow:        cfg.Coordination.PrimaryFlow,
		PriorityThreshold:  cfg.Coordination.PriorityThreshold,
		Debug:              cfg.Coordination.Debug,
	}, opts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build coordinator: %w", err)
	}

	return rt, nil
}

// Close releases the runtime's external resources.
func (rt *runtime) Close() {
	for _, name := range rt.registry.Names() {
		if a := rt.registry.Get(name); a != nil {
			a.Shutdown()
		}
	}
	if rt.db != nil {
		rt.db.Close()
	}
}

// loadFlows resolves the flows file: --flows flag, then config, then the
// built-in defaults.
func loadFlows(cfg *config.Config) (*config.FlowsConfig, error) {
	path := flagFlowsFile
	if path == "" {
		path = cfg.FlowsFile
	}
	if path == "" {
		return config.DefaultFlowsConfig(), nil
	}
	return config.LoadFlowsConfig(path)
}

// registerFlows builds an adapter per definition and registers the ones
// whose backend can be constructed. Flows with missing API keys are
// skipped with a warning rather than failing the whole command.
func registerFlows(rt *runtime, flows *config.FlowsConfig) {
	for _, def := range flows.Flows {
		adapter, err := buildAdapter(rt.cfg, def, rt.emitter)
		if err != nil {
			log.Printf("[cli] flow %q skipped: %v", def.Name, err)
			continue
		}
		if err := adapter.Initialize(); err != nil {
			log.Printf("[cli] flow %q failed to initialize: %v", def.Name, err)
			continue
		}
		rt.registry.Register(adapter)
	}
}

// syncFlows reconciles the registry with a reloaded flows config:
// removed flows are unregistered, new ones registered. Existing flows
// keep their in-flight state.
func syncFlows(rt *runtime, flows *config.FlowsConfig) {
	wanted := make(map[string]bool, len(flows.Flows))
	for _, def := range flows.Flows {
		wanted[def.Name] = true
	}
	for _, name := range rt.registry.Names() {
		if !wanted[name] {
			if a := rt.registry.Get(name); a != nil {
				a.Shutdown()
			}
			rt.registry.Unregister(name)
		}
	}
	for _, def := range flows.Flows {
		if rt.registry.Get(def.Name) != nil {
			continue
		}
		adapter, err := buildAdapter(rt.cfg, def, rt.emitter)
		if err != nil {
			log.Printf("[cli] flow %q skipped: %v", def.Name, err)
			continue
		}
		if err := adapter.Initialize(); err != nil {
			log.Printf("[cli] flow %q failed to initialize: %v", def.Name, err)
			continue
		}
		rt.registry.Register(adapter)
	}
}

// buildAdapter constructs the backend and authenticator for one flow
// definition.
func buildAdapter(cfg *config.Config, def config.FlowDef, emitter *flow.Emitter) (*flow.Adapter, error) {
	var (
		backend flow.Backend
		auth    flow.Authenticator
		err     error
	)

	switch models.FlowType(def.Type) {
	case models.FlowTypeClaude:
		backend, auth, err = hostedBackend(cfg, def, config.ProviderAnthropic)
	case models.FlowTypeOpenAI:
		backend, auth, err = hostedBackend(cfg, def, config.ProviderOpenAI)
	case models.FlowTypeGemini:
		backend, auth, err = hostedBackend(cfg, def, config.ProviderGemini)
	case models.FlowTypeMock, models.FlowTypeLocal, models.FlowTypeCoordinator:
		backend, auth = flow.NewMockBackend(), flow.NoAuth()
	default:
		return nil, fmt.Errorf("unknown flow type %q", def.Type)
	}
	if err != nil {
		return nil, err
	}

	return flow.NewAdapter(flow.Config{
		Name:          def.Name,
		Type:          models.FlowType(def.Type),
		Capabilities:  def.Capabilities,
		MaxLoad:       def.MaxLoad,
		Timeout:       def.Timeout(),
		RetryAttempts: def.RetryAttempts,
		RequiresAuth:  def.RequiresAuth,
	}, backend, auth, emitter)
}

// hostedBackend builds a provider-backed backend plus its env-key
// authenticator.
func hostedBackend(cfg *config.Config, def config.FlowDef, provider config.Provider) (flow.Backend, flow.Authenticator, error) {
	key, err := config.GetAPIKey(cfg, provider)
	if err != nil {
		return nil, nil, err
	}

	model := def.Model
	auth := &flow.EnvKeyAuth{EnvVar: provider.EnvVar()}

	switch provider {
	case config.ProviderAnthropic:
		if model == "" {
			model = cfg.Providers.Anthropic.Model
		}
		auth.URL = "https://console.anthropic.com/settings/keys"
		backend, err := flow.NewClaudeBackend(key, model)
		return backend, auth, err
	case config.ProviderOpenAI:
		if model == "" {
			model = cfg.Providers.OpenAI.Model
		}
		auth.URL = "https://platform.openai.com/api-keys"
		backend, err := flow.NewOpenAIBackend(key, model)
		return backend, auth, err
	case config.ProviderGemini:
		if model == "" {
			model = cfg.Providers.Gemini.Model
		}
		auth.URL = "https://aistudio.google.com/apikey"
		backend, err := flow.NewGeminiBackend(key, model)
		return backend, auth, err
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", provider)
	}
}
