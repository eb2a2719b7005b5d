package service

import (
	"net/http"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/auth/context/usercontext"
	"github.com/arashthr/shelf/internal/types"
	"github.com/go-chi/chi/v5"
)

// GenerateSummary handles POST /bookmarks/{id}/generate-summary.
func (b Bookmarks) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	id := types.BookmarkId(chi.URLParam(r, "id"))

	result, err := b.Library.GenerateSummary(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := struct {
		Summary string `json:"summary"`
	}{Summary: result.Summary}
	if err := writeResponse(w, resp); err != nil {
		loggercontext.Logger(r.Context()).Errorw("write response", "error", err)
	}
}

// TextToSpeech handles POST /bookmarks/{id}/text-to-speech.
func (b Bookmarks) TextToSpeech(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	id := types.BookmarkId(chi.URLParam(r, "id"))

	audio, err := b.Library.TextToSpeech(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := struct {
		AudioURL string `json:"audioUrl"`
	}{AudioURL: audio}
	if err := writeResponse(w, resp); err != nil {
		loggercontext.Logger(r.Context()).Errorw("write response", "error", err)
	}
}
