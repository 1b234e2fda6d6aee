package contract_gpt

import (
	"context"

	"google.golang.org/genai"

	"github.com/turtacn/ContractLens/pkg/errors"
)

// GeminiGenerator calls the Gemini API through the official genai client.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator returns a nil Generator and no error when apiKey is
// empty so the result can go straight to NewEnhancer.
func NewGeminiGenerator(ctx context.Context, apiKey string) (Generator, error) {
	if apiKey == "" {
		return nil, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAIModelNotAvailable, "create gemini client")
	}
	return &GeminiGenerator{client: cli}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx,
		req.Model,
		[]*genai.Content{
			{Parts: []*genai.Part{{Text: req.Prompt}}, Role: "user"},
		},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: req.System}},
			},
			Temperature:     genai.Ptr(req.Temperature),
			MaxOutputTokens: req.MaxOutputTokens,
		},
	)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "gemini generate").WithDetail(req.Model)
	}
	return resp.Text(), nil
}

//Personal.AI order the ending
