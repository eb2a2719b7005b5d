package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/arashthr/shelf/internal/errors"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the part of *genai.Models the summarizer needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini summarizes with Google's Gemini models through the GenAI SDK.
type Gemini struct {
	Models  contentGenerator
	Model   string
	Timeout time.Duration
}

// NewGemini reads its credentials from GOOGLE_API_KEY or GEMINI_API_KEY.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{Models: client.Models, Model: model}, nil
}

func (g *Gemini) Summarize(ctx context.Context, req Request) (*Result, error) {
	req, err := prepare(req)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(req.MaxWords), genai.RoleUser),
		Temperature:       genai.Ptr[float32](temperature),
		TopP:              genai.Ptr[float32](topP),
		MaxOutputTokens:   maxTokens,
	}
	resp, err := g.Models.GenerateContent(ctx, g.Model, genai.Text(req.Content), config)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, timeoutError(err)
		}
		if apiErr, ok := asAPIError(err); ok {
			return nil, &errors.UpstreamError{Provider: "gemini", Status: apiErr.Code, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("generate content with Gemini: %w", err)
	}

	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if text == "" {
		return nil, &errors.UpstreamError{Provider: "gemini", Message: "Invalid response from Gemini API"}
	}
	return result(req, text, started), nil
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}
