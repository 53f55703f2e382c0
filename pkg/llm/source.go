package llm

import (
	"bytes"
	"context"
	"errors"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/LocalCraft/pkg/clock"
	"github.com/sashabaranov/go-openai"
)

const decisionTemplate = `You are an autonomous agent living in a voxel world.
Decide the single next action to take.

Current time: {{ .Time }}

Inventory:
{{- range $item, $count := .State.Inventory }}
- {{ $item }}: {{ $count }}
{{- else }}
(empty)
{{- end }}

Location: x={{ .State.Location.X }} y={{ .State.Location.Y }} z={{ .State.Location.Z }}

Relevant memories:
{{ .State.Memory | toPrettyJson }}

Feedback on recent actions:
{{ .State.ActionAwareness | toPrettyJson }}

Reply with exactly one JSON object and nothing else:
{"action": "<action>", "parameters": {<arguments>}, "reasoning": "<why>"}`

// DecisionSource asks an OpenAI compatible model for the next decision.
type DecisionSource struct {
	client   LLMClient
	model    string
	timeout  time.Duration
	clock    clock.Clock
	template *template.Template
	toolCall bool
}

type SourceOption func(*DecisionSource) error

// WithModel sets the chat model. An empty name keeps the default.
func WithModel(model string) SourceOption {
	return func(s *DecisionSource) error {
		if model != "" {
			s.model = model
		}
		return nil
	}
}

// WithRequestTimeout bounds every decision request.
func WithRequestTimeout(d time.Duration) SourceOption {
	return func(s *DecisionSource) error {
		s.timeout = d
		return nil
	}
}

func WithSourceClock(c clock.Clock) SourceOption {
	return func(s *DecisionSource) error {
		s.clock = c
		return nil
	}
}

// WithPromptTemplate replaces the default prompt. The template receives
// .State (types.BottleneckedState) and .Time, and has the sprig functions.
func WithPromptTemplate(text string) SourceOption {
	return func(s *DecisionSource) error {
		t, err := templateBase("decision", text)
		if err != nil {
			return err
		}
		s.template = t
		return nil
	}
}

// EnableToolCall asks for the decision through a forced function call
// instead of free text.
var EnableToolCall = func(s *DecisionSource) error {
	s.toolCall = true
	return nil
}

func NewDecisionSource(client LLMClient, opts ...SourceOption) (*DecisionSource, error) {
	t, err := templateBase("decision", decisionTemplate)
	if err != nil {
		return nil, err
	}
	s := &DecisionSource{
		client:   client,
		model:    "gpt-4",
		timeout:  2 * time.Minute,
		clock:    clock.Real(),
		template: t,
	}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func templateBase(templateName, templatetext string) (*template.Template, error) {
	return template.New(templateName).Funcs(sprig.FuncMap()).Parse(templatetext)
}

// Prompt renders the prompt for state.
func (s *DecisionSource) Prompt(state types.BottleneckedState) (string, error) {
	prompt := bytes.NewBuffer([]byte{})
	err := s.template.Execute(prompt, struct {
		State types.BottleneckedState
		Time  string
	}{
		State: state,
		Time:  s.clock.Now().UTC().Format(time.RFC1123),
	})
	if err != nil {
		return "", err
	}
	return prompt.String(), nil
}

// ProduceDecision implements coordinator.DecisionSource. Transport failures
// are returned as *types.ProductionError; a reply that cannot be parsed
// still yields a (default) decision.
func (s *DecisionSource) ProduceDecision(ctx context.Context, state types.BottleneckedState) (types.Decision, error) {
	prompt, err := s.Prompt(state)
	if err != nil {
		return types.Decision{}, &types.ProductionError{Source: "llm", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conv := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}

	if s.toolCall {
		args, err := GenerateTypedJSONWithConversation(ctx, s.client, conv, s.model, decisionSchema)
		if err != nil {
			return types.Decision{}, &types.ProductionError{Source: "llm", Err: err}
		}
		return ParseDecision(args, s.clock.Now()), nil
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: conv,
	})
	if err != nil {
		return types.Decision{}, &types.ProductionError{Source: "llm", Err: err}
	}
	if len(resp.Choices) == 0 {
		return types.Decision{}, &types.ProductionError{Source: "llm", Err: errors.New("no choices in response")}
	}

	return ParseDecision(resp.Choices[0].Message.Content, s.clock.Now()), nil
}
