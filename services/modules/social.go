package modules

import (
	"context"
	"maps"
	"sync"

	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
)

// Social counts how often each player was the target of a decision and
// publishes the counts as social.players.
type Social struct {
	module.Base

	mu      sync.Mutex
	players map[string]int
}

func NewSocial(cfg *config.Config, state *types.AgentState) (*Social, error) {
	base, err := module.NewBase(NameSocial, cfg, state)
	if err != nil {
		return nil, err
	}
	return &Social{Base: base, players: map[string]int{}}, nil
}

func (s *Social) OnDecision(_ context.Context, d types.Decision) error {
	player, ok := d.Parameters["player"].(string)
	if !ok || player == "" {
		return nil
	}
	s.mu.Lock()
	s.players[player]++
	s.mu.Unlock()
	return nil
}

func (s *Social) Update(context.Context) error {
	s.mu.Lock()
	players := maps.Clone(s.players)
	s.mu.Unlock()

	s.State().Social.Set(types.PlayersKey, players)
	return nil
}
