package types

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	IdleAction = "idle"

	ReasoningNoDecision     = "No decision made"
	ReasoningParseFailed    = "Failed to parse response"
	ReasoningNotProvided    = "No reasoning provided"
	ReasoningLLMParseFailed = "Failed to parse LLM response"
	ReasoningNoJSON         = "No JSON found in LLM response"
)

// Decision is what the coordinator chose to do. It is never modified
// after the coordinator emits it.
type Decision struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
	Reasoning  string         `json:"reasoning"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewDecision stamps a fresh decision.
func NewDecision(action string, parameters map[string]any, reasoning string, at time.Time) Decision {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return Decision{
		ID:         uuid.New().String(),
		Action:     action,
		Parameters: parameters,
		Reasoning:  reasoning,
		Timestamp:  at,
	}
}

// IdleDecision is the fallback used whenever no usable decision exists.
func IdleDecision(reasoning string, at time.Time) Decision {
	return NewDecision(IdleAction, nil, reasoning, at)
}

// Unix returns the timestamp in seconds since epoch.
func (d Decision) Unix() float64 {
	return float64(d.Timestamp.UnixNano()) / float64(time.Second)
}

func (d Decision) String() string {
	return fmt.Sprintf("%s %v (%s)", d.Action, d.Parameters, d.Reasoning)
}

// DecisionLog is the append-only sequence of emitted decisions.
type DecisionLog struct {
	mu        sync.RWMutex
	decisions []Decision
}

// Append adds d at the end of the log.
func (l *DecisionLog) Append(d Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decisions = append(l.decisions, d)
}

func (l *DecisionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.decisions)
}

// Last returns the most recent decision.
func (l *DecisionLog) Last() (Decision, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.decisions) == 0 {
		return Decision{}, false
	}
	return l.decisions[len(l.decisions)-1], true
}

// All returns a copy of the log, oldest first.
func (l *DecisionLog) All() []Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Decision, len(l.decisions))
	copy(out, l.decisions)
	return out
}

// ProductionError reports that a decision source could not answer,
// e.g. because of a timeout or an unavailable backend.
type ProductionError struct {
	Source string
	Err    error
}

func (e *ProductionError) Error() string {
	return fmt.Sprintf("decision source %s: %v", e.Source, e.Err)
}

func (e *ProductionError) Unwrap() error {
	return e.Err
}
