// Package speech turns bookmark summaries into audio.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arashthr/shelf/internal/errors"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io/v1"
	DefaultVoiceID = "I6FCyzfC1FISEENiALlo"
	modelID        = "eleven_multilingual_v2"
	maxAudioBytes  = 20 << 20
)

type Synthesizer interface {
	// Synthesize returns the audio as a data:audio/mpeg;base64 URI.
	Synthesize(ctx context.Context, text, voiceID string) (string, error)
}

type ElevenLabs struct {
	Client  *http.Client
	APIKey  string
	BaseURL string
	VoiceID string
}

func NewElevenLabs(client *http.Client, apiKey string) *ElevenLabs {
	if client == nil {
		client = http.DefaultClient
	}
	return &ElevenLabs{
		Client:  client,
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		VoiceID: DefaultVoiceID,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type ttsErrorBody struct {
	Detail struct {
		Message string `json:"message"`
	} `json:"detail"`
}

// Synthesize uses the client's VoiceID when voiceID is empty.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.Validation("text", "Text is required")
	}
	if voiceID == "" {
		voiceID = e.VoiceID
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	payload, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       modelID,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.5},
	})
	if err != nil {
		return "", fmt.Errorf("encode speech request: %w", err)
	}

	endpoint := e.baseURL() + "/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create speech request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.APIKey)

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := ""
		var body ttsErrorBody
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body) == nil {
			message = body.Detail.Message
		}
		if message == "" {
			message = "API request failed: " + http.StatusText(resp.StatusCode)
		}
		return "", &errors.UpstreamError{Provider: "elevenlabs", Status: resp.StatusCode, Message: message}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return "", fmt.Errorf("read speech audio: %w", err)
	}
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio), nil
}

func (e *ElevenLabs) baseURL() string {
	if e.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimSuffix(e.BaseURL, "/")
}
