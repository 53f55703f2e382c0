package coordinator

import (
	"reflect"

	"github.com/mudler/LocalCraft/core/types"
)

// CreateBottleneckedState reduces state to what a decision source may see.
// It never fails: anything missing degrades to an empty value.
func CreateBottleneckedState(state *types.AgentState) types.BottleneckedState {
	view := types.BottleneckedState{
		Inventory:       map[string]int{},
		Memory:          []any{},
		ActionAwareness: []any{},
	}
	if state == nil {
		return view
	}

	if inv := state.World.Inventory(); inv != nil {
		view.Inventory = inv
	}
	if loc, ok := state.World.Location(); ok {
		view.Location = loc
	}
	if v, ok := state.Memory.Get(types.RelevantMemoriesKey); ok {
		view.Memory = sequence(v)
	}
	if v, ok := state.ActionAwareness.Get(types.ActionFeedbackKey); ok {
		view.ActionAwareness = sequence(v)
	}
	return view
}

// sequence copies any slice or array into []any. A lone value becomes a
// one element sequence, nil becomes empty.
func sequence(v any) []any {
	if v == nil {
		return []any{}
	}
	if s, ok := v.([]any); ok {
		return append([]any{}, s...)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	default:
		return []any{v}
	}
}
