package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raine/estate-pricer/internal/config"
	"github.com/raine/estate-pricer/internal/item"
	"github.com/raine/estate-pricer/internal/llm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-path> [gemini|openai|both]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  %s - Required for Gemini\n", config.EnvGeminiAPIKey)
		fmt.Fprintf(os.Stderr, "  %s - Required for OpenAI\n", config.EnvOpenAIAPIKey)
		os.Exit(1)
	}

	imagePath := os.Args[1]
	provider := "both"
	if len(os.Args) >= 3 {
		provider = os.Args[2]
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
		os.Exit(1)
	}

	config.LoadEnvFile()
	req := llm.Request{
		System:   llm.SystemPrompt,
		Prompt:   llm.UserPrompt(llm.PhotoContext{Index: 0, Total: 1}),
		Image:    imageData,
		MIMEType: getMimeType(imagePath),
	}
	ctx := context.Background()

	switch provider {
	case "gemini":
		runGemini(ctx, req)
	case "openai":
		runOpenAI(ctx, req)
	case "both":
		runGemini(ctx, req)
		fmt.Println("\n" + strings.Repeat("-", 50) + "\n")
		runOpenAI(ctx, req)
	default:
		fmt.Fprintf(os.Stderr, "Unknown provider: %s (use gemini, openai, or both)\n", provider)
		os.Exit(1)
	}
}

func runGemini(ctx context.Context, req llm.Request) {
	fmt.Println("=== GEMINI ===")

	model, err := llm.NewGemini(ctx, llm.GeminiOpts{APIKey: os.Getenv(config.EnvGeminiAPIKey)})
	if err != nil {
		fmt.Printf("Error creating Gemini model: %v\n", err)
		return
	}
	describe(ctx, model, req)
}

func runOpenAI(ctx context.Context, req llm.Request) {
	fmt.Println("=== OPENAI ===")

	describe(ctx, llm.NewOpenAI(llm.OpenAIOpts{APIKey: os.Getenv(config.EnvOpenAIAPIKey)}), req)
}

func describe(ctx context.Context, model llm.VisionModel, req llm.Request) {
	resp, err := model.Describe(ctx, req)
	if err != nil {
		fmt.Printf("Error analyzing image: %v\n", err)
		return
	}

	raws, err := llm.ParseItems(resp.Text)
	if err != nil {
		fmt.Printf("Unparseable response: %v\n", err)
	}
	for i, raw := range raws {
		it, v, ok := item.FromRaw(raw)
		if !ok {
			continue
		}
		fmt.Printf("%d. %s [%s, %s confidence]\n", i+1, it.Name, it.Category, it.Confidence)
		if it.Brand != "" || it.Model != "" {
			fmt.Printf("   Brand/model: %s %s\n", it.Brand, it.Model)
		}
		fmt.Printf("   Search:      %s\n", it.SearchQuery)
		if it.EstimatedValueHint != "" {
			fmt.Printf("   Estimate:    %s\n", it.EstimatedValueHint)
		}
		if v.UnknownCategory != "" {
			fmt.Printf("   Category %q was coerced to other\n", v.UnknownCategory)
		}
	}
	fmt.Println()
	fmt.Printf("Model:       %s\n", resp.Model)
	fmt.Printf("Tokens:      %d in / %d out / %d total\n",
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)
	fmt.Printf("Cost:        $%.6f\n", resp.Usage.CostUSD)
}

func getMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
