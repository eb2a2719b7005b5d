package service

import (
	"net/http"
	"net/url"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/auth/context/usercontext"
)

// CreateFolder handles POST /folders and shows the new, empty folder.
func (b Bookmarks) CreateFolder(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	folder, err := b.Library.CreateFolder(r.Context(), user.ID, r.FormValue("name"))
	if err != nil {
		status, msg := describe(err)
		loggercontext.Logger(r.Context()).Infow("create folder", "error", err)
		b.renderIndex(w, r, status, errorMessage(msg))
		return
	}
	http.Redirect(w, r, "/?"+url.Values{"folder": {string(folder.ID)}}.Encode(), http.StatusFound)
}
