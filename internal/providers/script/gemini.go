package script

import (
	"context"

	"scenestudio/internal/providers/genai"
)

// GenerateRequest is one script generation call. The instruction is
// self-contained; no image data travels with it.
type GenerateRequest struct {
	Instruction string
	RequestID   string
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return g.client.GenerateText(ctx, genai.TextRequest{
		Instruction: req.Instruction,
		RequestID:   req.RequestID,
	})
}

var _ Generator = (*GeminiGenerator)(nil)
