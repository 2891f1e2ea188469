package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-3-flash-preview"

type modelPrice struct {
	inputPerMillion  float64
	outputPerMillion float64
}

// Gemini pricing (per million tokens)
var geminiPrices = map[string]modelPrice{
	"gemini-3-flash-preview": {0.50, 3.00},
	"gemini-2.5-flash":       {0.30, 2.50},
	"gemini-2.5-flash-lite":  {0.10, 0.40},
	"gemini-2.5-pro":         {1.25, 10.00},
}

// Gemini is a VisionModel backed by Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ VisionModel = (*Gemini)(nil)

// GeminiOpts configures a Gemini backend. BaseURL is only set in tests.
type GeminiOpts struct {
	APIKey  string
	Model   string
	BaseURL string
}

func NewGemini(ctx context.Context, opts GeminiOpts) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Describe(ctx context.Context, req Request) (*Response, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
		{InlineData: &genai.Blob{Data: req.Image, MIMEType: req.MIMEType}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	var config *genai.GenerateContentConfig
	if req.System != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateCost(geminiPrices, g.model, usage.InputTokens, usage.OutputTokens)
	}

	log.Info().
		Str("model", g.model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("vision llm call")

	return &Response{Model: g.model, Text: result.Text(), Usage: usage}, nil
}

// calculateCost prices a call. Models without a price entry cost zero.
func calculateCost(prices map[string]modelPrice, model string, inputTokens, outputTokens int64) float64 {
	p, ok := prices[model]
	if !ok {
		log.Debug().Str("model", model).Msg("no pricing for model")
		return 0
	}
	inputCost := float64(inputTokens) / 1_000_000 * p.inputPerMillion
	outputCost := float64(outputTokens) / 1_000_000 * p.outputPerMillion
	return inputCost + outputCost
}
