package types

// BottleneckedState is the narrow view of AgentState handed to a decision
// source. It is rebuilt every coordinator cycle and never stored.
type BottleneckedState struct {
	Inventory       map[string]int `json:"inventory"`
	Location        Location       `json:"location"`
	Memory          []any          `json:"memory"`
	ActionAwareness []any          `json:"actionAwareness"`
}
