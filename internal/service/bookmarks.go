package service

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/auth/context/usercontext"
	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/library"
	"github.com/arashthr/shelf/internal/models"
	"github.com/arashthr/shelf/internal/query"
	"github.com/arashthr/shelf/internal/types"
	"github.com/arashthr/shelf/internal/validations"
	"github.com/arashthr/shelf/web"
	"github.com/go-chi/chi/v5"
)

type Bookmarks struct {
	Templates struct {
		Index web.Template
		New   web.Template
		Show  web.Template
	}
	Library *library.Library
}

type bookmarkCard struct {
	Id         types.BookmarkId
	Title      string
	Link       string
	Host       string
	Favicon    string
	Blurb      string
	Tags       []string
	FolderName string
	CreatedAt  string
}

type folderEntry struct {
	Id     types.FolderId
	Name   string
	Count  int
	Active bool
}

type sortOption struct {
	Value    query.Sort
	Label    string
	Selected bool
}

type indexData struct {
	Title         string
	Filter        query.Filter
	Bookmarks     []bookmarkCard
	Tags          []models.Tag
	Folders       []folderEntry
	Total         int
	Uncategorized int
	Sorts         []sortOption
}

func (b Bookmarks) Index(w http.ResponseWriter, r *http.Request) {
	b.renderIndex(w, r, http.StatusOK)
}

func (b Bookmarks) renderIndex(w http.ResponseWriter, r *http.Request, status int, msgs ...web.NavbarMessage) {
	user := usercontext.User(r.Context())
	logger := loggercontext.Logger(r.Context())

	filter := query.ParseFilter(r.URL.Query())
	page, err := b.Library.Page(r.Context(), user.ID, filter)
	if err != nil {
		logger.Errorw("load bookmark list", "error", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	render(w, r, b.Templates.Index, status, newIndexData(page), msgs...)
}

func newIndexData(page *library.Page) indexData {
	data := indexData{
		Title:         "My Bookmarks",
		Filter:        page.Filter,
		Tags:          page.Tags,
		Uncategorized: page.FolderCounts[types.UncategorizedFolder],
	}

	folderNames := make(map[types.FolderId]string, len(page.Folders))
	for _, f := range page.Folders {
		folderNames[f.ID] = f.Name
		data.Folders = append(data.Folders, folderEntry{
			Id:     f.ID,
			Name:   f.Name,
			Count:  page.FolderCounts[string(f.ID)],
			Active: f.ID == page.Filter.FolderID,
		})
	}
	for _, n := range page.FolderCounts {
		data.Total += n
	}

	for _, bm := range page.Bookmarks {
		card := bookmarkCard{
			Id:        bm.ID,
			Title:     bm.Title,
			Link:      bm.URL,
			Host:      validations.ExtractHostname(bm.URL),
			Tags:      bm.Tags,
			CreatedAt: bm.CreatedAt.Format("Jan 02, 2006"),
		}
		if bm.Favicon != nil {
			card.Favicon = *bm.Favicon
		}
		switch {
		case bm.Summary != nil:
			card.Blurb = *bm.Summary
		case bm.Description != nil:
			card.Blurb = *bm.Description
		}
		if bm.FolderID != nil {
			card.FolderName = folderNames[*bm.FolderID]
		}
		data.Bookmarks = append(data.Bookmarks, card)
	}

	for _, s := range []struct {
		value query.Sort
		label string
	}{
		{query.SortNewest, "Newest first"},
		{query.SortOldest, "Oldest first"},
		{query.SortTitle, "Title A-Z"},
	} {
		data.Sorts = append(data.Sorts, sortOption{Value: s.value, Label: s.label, Selected: s.value == page.Filter.Sort})
	}
	return data
}

type newData struct {
	Title string
	Link  string
}

func (b Bookmarks) New(w http.ResponseWriter, r *http.Request) {
	b.Templates.New.Execute(w, r, newData{Title: "Add New Bookmark", Link: r.FormValue("url")})
}

func (b Bookmarks) Create(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	logger := loggercontext.Logger(r.Context())

	form := validations.NewBookmarkForm{URL: validations.NormalizeURL(r.FormValue("url"))}
	data := newData{Title: "Add New Bookmark", Link: form.URL}
	if err := validations.Struct(form); err != nil {
		render(w, r, b.Templates.New, http.StatusBadRequest, data, errorMessage(errors.PublicMessage(err, "URL is invalid")))
		return
	}

	bookmark, err := b.Library.Create(r.Context(), user.ID, form.URL)
	if err != nil {
		status, msg := describe(err)
		logger.Errorw("create bookmark", "error", err, "link", form.URL)
		render(w, r, b.Templates.New, status, data, errorMessage(msg))
		return
	}
	logger.Infow("bookmark saved", "bookmark_id", bookmark.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

type showData struct {
	Title       string
	Id          types.BookmarkId
	Link        string
	Host        string
	Favicon     string
	Description string
	Summary     string
	Tags        []string
	TagsField   string
	FolderId    types.FolderId
	Folders     []models.Folder
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b Bookmarks) Show(w http.ResponseWriter, r *http.Request) {
	bookmark, err := b.getBookmark(w, r)
	if err != nil {
		return
	}
	data, err := b.newShowData(r, bookmark)
	if err != nil {
		loggercontext.Logger(r.Context()).Errorw("list folders", "error", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	b.Templates.Show.Execute(w, r, data)
}

func (b Bookmarks) newShowData(r *http.Request, bm *models.Bookmark) (showData, error) {
	user := usercontext.User(r.Context())
	folders, err := b.Library.Folders(r.Context(), user.ID)
	if err != nil {
		return showData{}, err
	}
	data := showData{
		Title:     bm.Title,
		Id:        bm.ID,
		Link:      bm.URL,
		Host:      validations.ExtractHostname(bm.URL),
		Tags:      bm.Tags,
		TagsField: strings.Join(bm.Tags, ", "),
		Folders:   folders,
		Version:   bm.Version,
		CreatedAt: bm.CreatedAt,
		UpdatedAt: bm.UpdatedAt,
	}
	if bm.Favicon != nil {
		data.Favicon = *bm.Favicon
	}
	if bm.Description != nil {
		data.Description = *bm.Description
	}
	if bm.Summary != nil {
		data.Summary = *bm.Summary
	}
	if bm.FolderID != nil {
		data.FolderId = *bm.FolderID
	}
	return data, nil
}

// Update handles both actions of the edit page: saving the form and deleting
// the bookmark.
func (b Bookmarks) Update(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	logger := loggercontext.Logger(r.Context())
	id := types.BookmarkId(chi.URLParam(r, "id"))

	action, err := parseAction(r)
	if err != nil {
		b.rerenderShow(w, r, id, err)
		return
	}

	switch a := action.(type) {
	case deleteAction:
		if err := b.Library.Delete(r.Context(), user.ID, id); err != nil {
			status, msg := describe(err)
			logger.Infow("delete bookmark", "error", err)
			http.Error(w, msg, status)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	case saveAction:
		if _, err := b.Library.Update(r.Context(), user.ID, id, a.edit()); err != nil {
			b.rerenderShow(w, r, id, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		panic(fmt.Sprintf("unhandled bookmark action %T", a))
	}
}

// rerenderShow shows the edit page again with the stored bookmark and the
// reason the submission was rejected.
func (b Bookmarks) rerenderShow(w http.ResponseWriter, r *http.Request, id types.BookmarkId, cause error) {
	user := usercontext.User(r.Context())
	logger := loggercontext.Logger(r.Context())
	status, msg := describe(cause)
	if status >= http.StatusInternalServerError {
		logger.Errorw("update bookmark", "error", cause)
	} else {
		logger.Infow("update bookmark rejected", "error", cause)
	}

	bookmark, err := b.Library.Get(r.Context(), user.ID, id)
	if err != nil {
		status, msg := describe(err)
		http.Error(w, msg, status)
		return
	}
	data, err := b.newShowData(r, bookmark)
	if err != nil {
		logger.Errorw("list folders", "error", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	render(w, r, b.Templates.Show, status, data, errorMessage(msg))
}

func (b Bookmarks) getBookmark(w http.ResponseWriter, r *http.Request) (*models.Bookmark, error) {
	user := usercontext.User(r.Context())
	id := types.BookmarkId(chi.URLParam(r, "id"))
	bookmark, err := b.Library.Get(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			http.Error(w, "Bookmark not found", http.StatusNotFound)
			return nil, err
		}
		loggercontext.Logger(r.Context()).Errorw("get bookmark", "error", err, "id", id)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return nil, err
	}
	return bookmark, nil
}
