package llm

import (
	"context"
	"fmt"

	"github.com/raine/estate-pricer/internal/config"
	"github.com/raine/estate-pricer/internal/storage"
)

// FromConfig builds the configured vision backend, wrapped with the vision
// cache when enabled and a store is given.
func FromConfig(ctx context.Context, cfg config.Config, store storage.Store) (VisionModel, error) {
	cred := cfg.VisionCredential()
	if !cred.Configured() {
		return nil, fmt.Errorf("%s is not set", cfg.VisionEnvVar())
	}

	var (
		model VisionModel
		name  = cfg.Analyzer.Model
	)
	switch cfg.Analyzer.Provider {
	case "openai":
		if name == "" || name == DefaultGeminiModel {
			name = DefaultOpenAIModel
		}
		model = NewOpenAI(OpenAIOpts{APIKey: cred.Value, Model: name})
	default:
		if name == "" {
			name = DefaultGeminiModel
		}
		g, err := NewGemini(ctx, GeminiOpts{APIKey: cred.Value, Model: name})
		if err != nil {
			return nil, err
		}
		model = g
	}

	if cfg.Analyzer.VisionCache && store != nil {
		model = NewCachedModel(model, store, cfg.Analyzer.Provider+"/"+name)
	}
	return model, nil
}
