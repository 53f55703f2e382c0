package modules

import (
	"context"
	"fmt"
	"sync"

	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/xlog"
	"github.com/philippgille/chromem-go"
)

const memoryCollection = "memories"

// Memory remembers every decision in a vector collection and, on each
// tick, publishes the memories closest to the latest decision as
// memory.relevantMemories.
type Memory struct {
	module.Base

	collection *chromem.Collection
	results    int

	mu      sync.Mutex
	pending []types.Decision
	latest  *types.Decision
}

// NewMemory builds the module on an in-process chromem database.
// The "results" option caps how many memories are published (default 5).
func NewMemory(cfg *config.Config, state *types.AgentState, embed chromem.EmbeddingFunc) (*Memory, error) {
	base, err := module.NewBase(NameMemory, cfg, state)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	c, err := db.GetOrCreateCollection(memoryCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating memory collection: %w", err)
	}

	results := base.Config().Int("results", 5)
	if results <= 0 {
		results = 5
	}

	return &Memory{
		Base:       base,
		collection: c,
		results:    results,
	}, nil
}

// OnDecision only queues d; embedding happens on the module's own tick so
// the broadcast is not held up by the embedding backend.
func (m *Memory) OnDecision(_ context.Context, d types.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, d)
	m.latest = &d
	return nil
}

func (m *Memory) Update(ctx context.Context) error {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	latest := m.latest
	m.mu.Unlock()

	for i, d := range pending {
		err := m.collection.AddDocument(ctx, chromem.Document{
			ID:      d.ID,
			Content: memoryText(d),
			Metadata: map[string]string{
				"action": d.Action,
			},
		})
		if err != nil {
			// keep what was not stored for the next tick
			m.mu.Lock()
			m.pending = append(pending[i:], m.pending...)
			m.mu.Unlock()
			return fmt.Errorf("storing memory %s: %w", d.ID, err)
		}
	}

	if latest == nil {
		return nil
	}

	n := min(m.results, m.collection.Count())
	if n == 0 {
		return nil
	}

	res, err := m.collection.Query(ctx, memoryText(*latest), n, nil, nil)
	if err != nil {
		return fmt.Errorf("querying memories: %w", err)
	}

	memories := make([]string, 0, len(res))
	for _, r := range res {
		memories = append(memories, r.Content)
	}
	m.State().Memory.Set(types.RelevantMemoriesKey, memories)
	xlog.Debug("Relevant memories updated", "module", m.Name(), "count", len(memories))
	return nil
}

// Count returns how many memories are stored.
func (m *Memory) Count() int {
	return m.collection.Count()
}

func memoryText(d types.Decision) string {
	return fmt.Sprintf("%s %v: %s", d.Action, d.Parameters, d.Reasoning)
}
