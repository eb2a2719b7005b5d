// Package summary produces short summaries of bookmark content with a
// hosted language model.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/types"
)

const (
	DefaultMaxWords = 150
	// Timeout bounds one summary request, transport included.
	Timeout     = 10 * time.Second
	temperature = 0.8
	maxTokens   = 1024
	topP        = 1.0

	timeoutMessage = "Summary generation timed out. Please try again."
)

type Request struct {
	Content  string
	MaxWords int
	Source   types.SummarySource
}

type Result struct {
	Summary        string
	OriginalLength int
	ProcessingTime time.Duration
	Source         types.SummarySource
}

type Summarizer interface {
	Summarize(ctx context.Context, req Request) (*Result, error)
}

// prepare validates req and fills its defaults. It runs before any network call.
func prepare(req Request) (Request, error) {
	if strings.TrimSpace(req.Content) == "" {
		return req, errors.Validation("content", "Content is required")
	}
	if req.MaxWords <= 0 {
		req.MaxWords = DefaultMaxWords
	}
	switch req.Source {
	case types.SummarySourceAuto, types.SummarySourceManual:
	case "":
		req.Source = types.SummarySourceManual
	default:
		return req, errors.Validation("source", fmt.Sprintf("unknown summary source %q", req.Source))
	}
	return req, nil
}

func systemPrompt(maxWords int) string {
	return fmt.Sprintf("You are a precise summarizer. Create a concise summary of the provided content in %d words or less. Focus on key points and maintain professional language.", maxWords)
}

func result(req Request, text string, started time.Time) *Result {
	return &Result{
		Summary:        strings.TrimSpace(text),
		OriginalLength: utf8.RuneCountInString(req.Content),
		ProcessingTime: time.Since(started),
		Source:         req.Source,
	}
}

func timeoutError(err error) error {
	return &errors.TimeoutError{Message: timeoutMessage, Err: err}
}
