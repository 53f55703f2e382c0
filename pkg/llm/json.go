package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// decisionSchema is the tool signature used when asking for a decision through a function call.
var decisionSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"action": {
			Type:        jsonschema.String,
			Description: "The action to perform next, e.g. mine, craft, move, idle",
		},
		"parameters": {
			Type:        jsonschema.Object,
			Description: "Arguments of the action",
		},
		"reasoning": {
			Type:        jsonschema.String,
			Description: "Why this action was chosen",
		},
	},
	Required: []string{"action", "reasoning"},
}

// GenerateTypedJSONWithConversation forces the model to call a single "json" tool
// and returns its raw arguments.
func GenerateTypedJSONWithConversation(ctx context.Context, client LLMClient, conv []openai.ChatCompletionMessage, model string, i jsonschema.Definition) (string, error) {
	toolName := "json"
	decision := openai.ChatCompletionRequest{
		Model:    model,
		Messages: conv,
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:       toolName,
					Parameters: i,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: toolName},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, decision)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) != 1 {
		return "", fmt.Errorf("no choices: %d", len(resp.Choices))
	}

	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) == 0 {
		return "", fmt.Errorf("no tool calls: %d", len(msg.ToolCalls))
	}

	xlog.Debug("JSON generated", "Arguments", msg.ToolCalls[0].Function.Arguments)

	return msg.ToolCalls[0].Function.Arguments, nil
}

// ExtractJSON returns the widest brace-delimited span in text: from the
// first "{" to the last "}".
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseDecision reads a decision out of free text. It never fails: every
// missing or malformed piece falls back to the idle defaults, and the
// timestamp is always now.
func ParseDecision(text string, now time.Time) types.Decision {
	span, ok := ExtractJSON(text)
	if !ok {
		xlog.Warn("No JSON found in LLM response", "response", text)
		return types.IdleDecision(types.ReasoningNoJSON, now)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		xlog.Warn("Failed to parse LLM response", "error", err, "response", span)
		return types.IdleDecision(types.ReasoningLLMParseFailed, now)
	}

	action := types.IdleAction
	if a, ok := raw["action"].(string); ok && a != "" {
		action = a
	}

	parameters := map[string]any{}
	if p, ok := raw["parameters"].(map[string]any); ok {
		parameters = p
	}

	reasoning := types.ReasoningNotProvided
	if r, ok := raw["reasoning"].(string); ok && r != "" {
		reasoning = r
	}

	return types.NewDecision(action, parameters, reasoning, now)
}
