package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// LLMClient is the subset of the OpenAI client the agent uses.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

var _ LLMClient = &openai.Client{}

func NewClient(APIKey, URL string, timeout time.Duration) *openai.Client {
	// Set up OpenAI client
	if APIKey == "" {
		APIKey = "sk-xxx"
	}
	config := openai.DefaultConfig(APIKey)
	config.BaseURL = URL

	if timeout <= 0 {
		timeout = 150 * time.Second
	}

	config.HTTPClient = &http.Client{
		Timeout: timeout,
	}
	return openai.NewClientWithConfig(config)
}
