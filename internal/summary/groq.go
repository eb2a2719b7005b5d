package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arashthr/shelf/internal/errors"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// Groq talks to the OpenAI compatible chat completions endpoint of Groq.
type Groq struct {
	Client  *http.Client
	APIKey  string
	BaseURL string
	Model   string
	// Timeout overrides the default 10s deadline, used by tests.
	Timeout time.Duration
}

func NewGroq(client *http.Client, apiKey string) *Groq {
	if client == nil {
		client = http.DefaultClient
	}
	return &Groq{
		Client:  client,
		APIKey:  apiKey,
		BaseURL: DefaultGroqBaseURL,
		Model:   DefaultGroqModel,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type groqErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Groq) Summarize(ctx context.Context, req Request) (*Result, error) {
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

	payload, err := json.Marshal(chatRequest{
		Model: g.model(),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req.MaxWords)},
			{Role: "user", Content: req.Content},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
	})
	if err != nil {
		return nil, fmt.Errorf("encode groq request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL()+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create groq request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, timeoutError(err)
		}
		return nil, fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, timeoutError(err)
		}
		return nil, fmt.Errorf("read groq response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody groqErrorBody
		message := ""
		if json.Unmarshal(body, &errBody) == nil {
			message = errBody.Error.Message
		}
		if message == "" {
			message = "API request failed: " + http.StatusText(resp.StatusCode)
		}
		return nil, &errors.UpstreamError{Provider: "groq", Status: resp.StatusCode, Message: message}
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil ||
		len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return nil, &errors.UpstreamError{Provider: "groq", Status: resp.StatusCode, Message: "Invalid response from Groq API"}
	}
	return result(req, completion.Choices[0].Message.Content, started), nil
}

func (g *Groq) baseURL() string {
	if g.BaseURL == "" {
		return DefaultGroqBaseURL
	}
	return strings.TrimSuffix(g.BaseURL, "/")
}

func (g *Groq) model() string {
	if g.Model == "" {
		return DefaultGroqModel
	}
	return g.Model
}
