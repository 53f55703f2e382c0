package services

import (
	"github.com/mudler/LocalCraft/core/agent"
	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/coordinator"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/LocalCraft/services/modules"
	"github.com/mudler/xlog"
	"github.com/philippgille/chromem-go"
)

// AvailableModules lists the modules in registry order.
var AvailableModules = []string{
	modules.NameWorld,
	modules.NameMemory,
	modules.NameAwareness,
	modules.NameSocial,
}

// Dependencies are the collaborators some modules need.
type Dependencies struct {
	Connector modules.Connector
	Embedding chromem.EmbeddingFunc
}

// Modules returns a factory for every configured module, in
// AvailableModules order. Unknown configuration sections are logged and ignored.
func Modules(cfg *config.Config, deps Dependencies) []agent.ModuleFactory {
	known := map[string]struct{}{coordinator.Name: {}}
	factories := []agent.ModuleFactory{}

	for _, name := range AvailableModules {
		known[name] = struct{}{}
		if _, ok := cfg.Modules[name]; !ok {
			continue
		}
		f, ok := Module(name, deps)
		if !ok {
			xlog.Warn("Module is configured but its dependencies are missing", "module", name)
			continue
		}
		factories = append(factories, f)
	}

	for name := range cfg.Modules {
		if _, ok := known[name]; !ok {
			xlog.Warn("Ignoring configuration of unknown module", "module", name)
		}
	}
	return factories
}

// Module returns the factory of a single module by name.
func Module(name string, deps Dependencies) (agent.ModuleFactory, bool) {
	switch name {
	case modules.NameWorld:
		if deps.Connector == nil {
			return nil, false
		}
		return func(cfg *config.Config, state *types.AgentState) (module.Module, error) {
			return modules.NewWorld(cfg, state, deps.Connector)
		}, true
	case modules.NameMemory:
		if deps.Embedding == nil {
			return nil, false
		}
		return func(cfg *config.Config, state *types.AgentState) (module.Module, error) {
			return modules.NewMemory(cfg, state, deps.Embedding)
		}, true
	case modules.NameAwareness:
		return func(cfg *config.Config, state *types.AgentState) (module.Module, error) {
			return modules.NewAwareness(cfg, state)
		}, true
	case modules.NameSocial:
		return func(cfg *config.Config, state *types.AgentState) (module.Module, error) {
			return modules.NewSocial(cfg, state)
		}, true
	}
	return nil, false
}
