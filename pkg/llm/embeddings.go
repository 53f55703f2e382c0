package llm

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/sashabaranov/go-openai"
)

// Embeddings returns a chromem embedding function backed by the
// embeddings endpoint of client.
func Embeddings(client LLMClient, model string) chromem.EmbeddingFunc {
	return chromem.EmbeddingFunc(
		func(ctx context.Context, text string) ([]float32, error) {
			resp, err := client.CreateEmbeddings(ctx,
				openai.EmbeddingRequestStrings{
					Input: []string{text},
					Model: openai.EmbeddingModel(model),
				},
			)
			if err != nil {
				return []float32{}, fmt.Errorf("error getting embeddings: %v", err)
			}

			if len(resp.Data) == 0 {
				return []float32{}, fmt.Errorf("no embeddings in response")
			}

			return resp.Data[0].Embedding, nil
		},
	)
}
