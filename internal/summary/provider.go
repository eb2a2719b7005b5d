package summary

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arashthr/shelf/internal/config"
)

// FromConfig builds the summarizer of the configured provider.
func FromConfig(ctx context.Context, cfg config.SummaryConfig, client *http.Client) (Summarizer, error) {
	switch cfg.Provider {
	case "gemini":
		gemini, err := NewGemini(ctx, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return gemini, nil
	case "groq":
		groq := NewGroq(client, cfg.GroqAPIKey)
		if cfg.GroqBaseURL != "" {
			groq.BaseURL = cfg.GroqBaseURL
		}
		if cfg.GroqModel != "" {
			groq.Model = cfg.GroqModel
		}
		return groq, nil
	default:
		return nil, fmt.Errorf("unknown summary provider %q", cfg.Provider)
	}
}
