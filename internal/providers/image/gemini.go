package image

import (
	"context"

	"scenestudio/internal/providers/genai"
)

// GenerateRequest is one composite-image generation: the assembled
// instruction plus the reference payloads in upload order.
type GenerateRequest struct {
	Instruction string
	References  []Reference
	AspectRatio string
	RequestID   string
}

type Reference struct {
	MIMEType string
	Data     string
}

// Asset is the generated image, decoded.
type Asset struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	refs := make([]genai.Reference, len(req.References))
	for i, ref := range req.References {
		refs[i] = genai.Reference{MIMEType: ref.MIMEType, Data: ref.Data}
	}
	img, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Instruction: req.Instruction,
		References:  refs,
		AspectRatio: req.AspectRatio,
		RequestID:   req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Asset{
		MIMEType: img.MIMEType,
		Data:     img.Data,
		Width:    img.Width,
		Height:   img.Height,
	}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
