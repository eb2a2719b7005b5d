package library

import (
	"context"
	"fmt"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/models"
	"github.com/arashthr/shelf/internal/summary"
	"github.com/arashthr/shelf/internal/types"
)

// GenerateSummary fetches the page again, summarizes its description or
// title and stores the result on the bookmark.
func (l *Library) GenerateSummary(ctx context.Context, owner types.UserId, id types.BookmarkId) (*summary.Result, error) {
	bookmark, err := l.Store.Get(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	if l.Summarizer == nil {
		return nil, errors.Public(errors.New("no summarizer configured"), "Summaries are not available")
	}

	res := l.Fetcher.Fetch(ctx, bookmark.URL)
	content := res.Metadata.Title
	if res.Metadata.Description != nil {
		content = *res.Metadata.Description
	}

	result, err := l.Summarizer.Summarize(ctx, summary.Request{
		Content:  content,
		MaxWords: l.MaxWords,
		Source:   types.SummarySourceManual,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize bookmark: %w", err)
	}

	if _, err := l.Store.Update(ctx, owner, id, models.BookmarkUpdate{Summary: &result.Summary}); err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}
	loggercontext.Logger(ctx).Infow("summary generated",
		"bookmark_id", id,
		"original_length", result.OriginalLength,
		"took", result.ProcessingTime,
	)
	return result, nil
}

// TextToSpeech reads the stored summary aloud and returns the audio as a
// data URI.
func (l *Library) TextToSpeech(ctx context.Context, owner types.UserId, id types.BookmarkId) (string, error) {
	bookmark, err := l.Store.Get(ctx, owner, id)
	if err != nil {
		return "", fmt.Errorf("get bookmark: %w", err)
	}
	if bookmark.Summary == nil || *bookmark.Summary == "" {
		return "", errors.Validation("summary", "No summary available")
	}
	if l.Speech == nil {
		return "", errors.Public(errors.New("no speech synthesizer configured"), "Text to speech is not available")
	}

	audio, err := l.Speech.Synthesize(ctx, *bookmark.Summary, "")
	if err != nil {
		return "", fmt.Errorf("synthesize summary: %w", err)
	}
	return audio, nil
}
