package coordinator

import (
	"context"

	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/LocalCraft/pkg/clock"
)

// DecisionSource turns a bottlenecked view into a decision. Errors are
// recovered by the coordinator, which idles instead.
type DecisionSource interface {
	ProduceDecision(ctx context.Context, state types.BottleneckedState) (types.Decision, error)
}

// SourceFunc adapts a function to DecisionSource.
type SourceFunc func(ctx context.Context, state types.BottleneckedState) (types.Decision, error)

func (f SourceFunc) ProduceDecision(ctx context.Context, state types.BottleneckedState) (types.Decision, error) {
	return f(ctx, state)
}

// IdleSource always decides to idle. It is used when no language model is configured.
type IdleSource struct {
	Clock clock.Clock
}

func (s IdleSource) ProduceDecision(ctx context.Context, _ types.BottleneckedState) (types.Decision, error) {
	c := s.Clock
	if c == nil {
		c = clock.Real()
	}
	return types.IdleDecision(types.ReasoningNoDecision, c.Now()), nil
}
