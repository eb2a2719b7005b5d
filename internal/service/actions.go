package service

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/library"
	"github.com/arashthr/shelf/internal/types"
	"github.com/arashthr/shelf/internal/validations"
)

// bookmarkAction is what a POST to /bookmarks/{id} asks for. The set of
// implementations is closed: saveAction and deleteAction.
type bookmarkAction interface {
	bookmarkAction()
}

type saveAction struct {
	form validations.BookmarkForm
}

type deleteAction struct{}

func (saveAction) bookmarkAction()   {}
func (deleteAction) bookmarkAction() {}

// parseAction reads the intent field once. A missing intent is a save, as
// the edit form's main button does not send one.
func parseAction(r *http.Request) (bookmarkAction, error) {
	switch intent := r.FormValue("intent"); intent {
	case "delete":
		return deleteAction{}, nil
	case "", "save":
		form, err := parseBookmarkForm(r)
		if err != nil {
			return nil, err
		}
		return saveAction{form: form}, nil
	default:
		return nil, errors.Validation("intent", "Unknown action")
	}
}

func parseBookmarkForm(r *http.Request) (validations.BookmarkForm, error) {
	form := validations.BookmarkForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		URL:         strings.TrimSpace(r.FormValue("url")),
		Description: r.FormValue("description"),
		Summary:     r.FormValue("summary"),
		FolderID:    strings.TrimSpace(r.FormValue("folderId")),
		Tags:        r.FormValue("tags"),
	}
	if v := r.FormValue("version"); v != "" {
		version, err := strconv.Atoi(v)
		if err != nil {
			return form, errors.Validation("version", "Version is invalid")
		}
		form.Version = version
	}
	if err := validations.Struct(form); err != nil {
		return form, err
	}
	return form, nil
}

// edit turns the form into a library edit. The folder field is always
// posted by the form, so an empty value moves the bookmark out of its folder.
func (a saveAction) edit() library.Edit {
	folder := types.FolderId(a.form.FolderID)
	edit := library.Edit{
		Title:       a.form.Title,
		URL:         a.form.URL,
		Description: validations.CleanUpText(a.form.Description),
		Summary:     validations.CleanUpText(a.form.Summary),
		FolderID:    &folder,
		Tags:        validations.SplitTags(a.form.Tags),
	}
	if a.form.Version > 0 {
		version := a.form.Version
		edit.ExpectedVersion = &version
	}
	return edit
}
