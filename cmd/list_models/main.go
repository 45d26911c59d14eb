// Command list_models prints the Gemini models the configured API key can
// use for content generation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"wiki-quiz/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const generateContent = "generateContent"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LLM.APIKey == "" {
		log.Fatal("GEMINI_API_KEY (or llm.api_key) is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.LLM.APIKey))
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer client.Close()

	if err := listModels(ctx, client.ListModels(ctx), os.Stdout); err != nil {
		log.Fatalf("Error fetching models: %v\nCheck the API key and network connection.", err)
	}
}

// modelIterator is the part of *genai.ModelInfoIterator used here.
type modelIterator interface {
	Next() (*genai.ModelInfo, error)
}

func listModels(ctx context.Context, it modelIterator, w io.Writer) error {
	fmt.Fprintln(w, "\n=== Available Gemini Models ===")
	fmt.Fprintln(w)

	found := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return err
		}
		if !slices.Contains(info.SupportedGenerationMethods, generateContent) {
			continue
		}
		found++
		fmt.Fprintf(w, "✓ %s\n", info.Name)
		if info.DisplayName != "" {
			fmt.Fprintf(w, "  Display Name: %s\n", info.DisplayName)
		}
		fmt.Fprintf(w, "  Methods: %s\n\n", strings.Join(info.SupportedGenerationMethods, ", "))
	}

	if found == 0 {
		fmt.Fprintln(w, "No models supporting generateContent found")
	}
	return nil
}
