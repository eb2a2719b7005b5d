package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arashthr/shelf/internal/config"
	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroq(t *testing.T, handler http.HandlerFunc) *Groq {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewGroq(srv.Client(), "test-key")
	g.BaseURL = srv.URL
	return g
}

func TestGroqSummarize(t *testing.T) {
	g := newGroq(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultGroqModel, body.Model)
		assert.Equal(t, 0.8, body.Temperature)
		assert.Equal(t, 1024, body.MaxTokens)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[0].Content, "in 40 words or less")
		assert.Equal(t, "héllo world", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  A short summary. "}}]}`))
	})

	res, err := g.Summarize(context.Background(), Request{Content: "héllo world", MaxWords: 40, Source: types.SummarySourceAuto})

	require.NoError(t, err)
	assert.Equal(t, "A short summary.", res.Summary)
	assert.Equal(t, 11, res.OriginalLength)
	assert.Equal(t, types.SummarySourceAuto, res.Source)
}

func TestGroqDefaults(t *testing.T) {
	g := newGroq(t, func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Messages[0].Content, "in 150 words or less")
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	res, err := g.Summarize(context.Background(), Request{Content: "text"})

	require.NoError(t, err)
	assert.Equal(t, types.SummarySourceManual, res.Source)
}

func TestGroqValidatesBeforeCalling(t *testing.T) {
	g := newGroq(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	for _, req := range []Request{
		{Content: ""},
		{Content: "   \n"},
		{Content: "text", Source: "weekly"},
	} {
		_, err := g.Summarize(context.Background(), req)
		var verr *errors.ValidationError
		assert.True(t, errors.As(err, &verr), "request %+v", req)
	}
}

func TestGroqUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"provider message", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, "Invalid API Key"},
		{"no message", http.StatusInternalServerError, `oops`, "API request failed: Internal Server Error"},
		{"empty choices", http.StatusOK, `{"choices":[]}`, "Invalid response from Groq API"},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":" "}}]}`, "Invalid response from Groq API"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGroq(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := g.Summarize(context.Background(), Request{Content: "text"})

			var upstream *errors.UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, "groq", upstream.Provider)
			assert.Equal(t, tt.message, upstream.Message)
		})
	}
}

func TestGroqTimeout(t *testing.T) {
	release := make(chan struct{})
	g := newGroq(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	g.Timeout = 50 * time.Millisecond

	_, err := g.Summarize(context.Background(), Request{Content: "text"})

	var timeout *errors.TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, "Summary generation timed out. Please try again.", errors.PublicMessage(err, ""))
}

func TestFromConfig(t *testing.T) {
	s, err := FromConfig(context.Background(), config.SummaryConfig{
		Provider:    "groq",
		GroqAPIKey:  "gsk-test",
		GroqBaseURL: "http://groq.local/v1",
		GroqModel:   "llama-test",
	}, nil)
	require.NoError(t, err)
	groq, ok := s.(*Groq)
	require.True(t, ok)
	assert.Equal(t, "http://groq.local/v1", groq.BaseURL)
	assert.Equal(t, "llama-test", groq.Model)
	assert.Equal(t, "gsk-test", groq.APIKey)

	_, err = FromConfig(context.Background(), config.SummaryConfig{Provider: "openai"}, nil)
	assert.ErrorContains(t, err, "openai")
}
