package recommend

import (
	"context"

	"github.com/kailas-cloud/neusearch/internal/usecase/retrieval"
)

// Retriever runs the adaptive search loop.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) (retrieval.Response, error)
}

// TextGenerator turns a prompt into free text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
