package llm

import "context"

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD += other.CostUSD
}

// Request is a single image prompt.
type Request struct {
	System   string
	Prompt   string
	Image    []byte
	MIMEType string
}

// Response is the model's free-text answer.
type Response struct {
	Model  string
	Text   string
	Usage  Usage
	Cached bool
}

// VisionModel answers a text prompt about one image.
type VisionModel interface {
	Describe(ctx context.Context, req Request) (*Response, error)
}
