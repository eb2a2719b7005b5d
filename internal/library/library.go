// Package library holds the bookmark workflows shared by the web server and
// shelfctl: saving a link, editing it, listing a page and the enrichment
// actions.
package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/metadata"
	"github.com/arashthr/shelf/internal/models"
	"github.com/arashthr/shelf/internal/query"
	"github.com/arashthr/shelf/internal/speech"
	"github.com/arashthr/shelf/internal/summary"
	"github.com/arashthr/shelf/internal/types"
	"github.com/arashthr/shelf/internal/validations"
)

// Store is what the library needs from a bookmark repository. Both
// models.BookmarkModel and models.SQLiteBookmarkModel satisfy it.
type Store interface {
	Create(ctx context.Context, nb models.NewBookmark) (*models.Bookmark, error)
	Get(ctx context.Context, owner types.UserId, id types.BookmarkId) (*models.Bookmark, error)
	Update(ctx context.Context, owner types.UserId, id types.BookmarkId, u models.BookmarkUpdate) (*models.Bookmark, error)
	Delete(ctx context.Context, owner types.UserId, id types.BookmarkId) error
	List(ctx context.Context, owner types.UserId, filter query.Filter) ([]models.Bookmark, error)
	ResolveOrCreateTags(ctx context.Context, owner types.UserId, names []string) ([]models.Tag, error)
	ReplaceBookmarkTags(ctx context.Context, owner types.UserId, id types.BookmarkId, tagIDs []types.TagId) error
	FolderCounts(ctx context.Context, owner types.UserId) (map[string]int, error)
	Tags(ctx context.Context, owner types.UserId) ([]models.Tag, error)
	Folders(ctx context.Context, owner types.UserId) ([]models.Folder, error)
	CreateFolder(ctx context.Context, owner types.UserId, name string) (*models.Folder, error)
}

type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) metadata.Result
}

type Library struct {
	Store    Store
	Fetcher  MetadataFetcher
	// Summarizer is optional. Without it bookmarks are saved without an
	// automatic summary and GenerateSummary fails.
	Summarizer summary.Summarizer
	Speech     speech.Synthesizer
	MaxWords   int
}

// Create saves rawURL for owner. The page metadata is fetched first and an
// automatic summary is attempted from its description or title. Neither a
// failed fetch nor a failed summary stops the bookmark from being saved.
func (l *Library) Create(ctx context.Context, owner types.UserId, rawURL string) (*models.Bookmark, error) {
	logger := loggercontext.Logger(ctx)

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.Validation("url", "URL is required")
	}
	if !validations.IsURLValid(rawURL) {
		return nil, errors.Validation("url", "URL must be a valid http or https address")
	}

	res := l.Fetcher.Fetch(ctx, rawURL)
	if res.Outcome == metadata.Failed {
		logger.Warnw("fetching page metadata failed", "url", rawURL, "error", res.Err)
	} else {
		logger.Debugw("page metadata fetched", "url", rawURL, "outcome", res.Outcome.String())
	}
	meta := res.Metadata

	var summaryText *string
	if l.Summarizer != nil {
		content := meta.Title
		if meta.Description != nil {
			content = *meta.Description
		}
		result, err := l.Summarizer.Summarize(ctx, summary.Request{
			Content:  content,
			MaxWords: l.MaxWords,
			Source:   types.SummarySourceAuto,
		})
		if err != nil {
			logger.Warnw("automatic summary failed", "url", rawURL, "error", err)
		} else {
			summaryText = &result.Summary
		}
	}

	bookmark, err := l.Store.Create(ctx, models.NewBookmark{
		UserID:      owner,
		URL:         rawURL,
		Title:       meta.Title,
		Description: meta.Description,
		Summary:     summaryText,
		Favicon:     meta.Favicon,
	})
	if err != nil {
		return nil, fmt.Errorf("create bookmark: %w", err)
	}
	logger.Infow("bookmark created", "bookmark_id", bookmark.ID, "summary", summaryText != nil)
	return bookmark, nil
}

// Edit is a full edit of a bookmark as submitted by the edit form.
type Edit struct {
	Title       string
	URL         string
	Description string
	Summary     string
	// FolderID nil leaves the folder as is, "" moves the bookmark out of
	// any folder.
	FolderID *types.FolderId
	Tags     []string
	// ExpectedVersion nil means the last writer wins.
	ExpectedVersion *int
}

// Update writes the edited fields and replaces the tag set of the bookmark.
// Tags are resolved before the bookmark is touched, so a failing tag lookup
// leaves the bookmark and its version as they were. The field write and the
// tag link are still two statements; see DESIGN.md.
func (l *Library) Update(ctx context.Context, owner types.UserId, id types.BookmarkId, edit Edit) (*models.Bookmark, error) {
	tagIDs, err := l.resolveTags(ctx, owner, edit.Tags)
	if err != nil {
		return nil, err
	}

	if _, err := l.Store.Update(ctx, owner, id, models.BookmarkUpdate{
		URL:             &edit.URL,
		Title:           &edit.Title,
		Description:     &edit.Description,
		Summary:         &edit.Summary,
		FolderID:        edit.FolderID,
		ExpectedVersion: edit.ExpectedVersion,
	}); err != nil {
		return nil, fmt.Errorf("update bookmark: %w", err)
	}

	if err := l.Store.ReplaceBookmarkTags(ctx, owner, id, tagIDs); err != nil {
		return nil, fmt.Errorf("replace tags: %w", err)
	}

	bookmark, err := l.Store.Get(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("reload bookmark: %w", err)
	}
	return bookmark, nil
}

func (l *Library) resolveTags(ctx context.Context, owner types.UserId, names []string) ([]types.TagId, error) {
	names = models.UniqueTagNames(names)
	if len(names) == 0 {
		return nil, nil
	}
	tags, err := l.Store.ResolveOrCreateTags(ctx, owner, names)
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}
	ids := make([]types.TagId, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (l *Library) Get(ctx context.Context, owner types.UserId, id types.BookmarkId) (*models.Bookmark, error) {
	bookmark, err := l.Store.Get(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	return bookmark, nil
}

func (l *Library) Delete(ctx context.Context, owner types.UserId, id types.BookmarkId) error {
	if err := l.Store.Delete(ctx, owner, id); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	loggercontext.Logger(ctx).Infow("bookmark deleted", "bookmark_id", id)
	return nil
}

// Page is everything the bookmark list shows.
type Page struct {
	Filter       query.Filter
	Bookmarks    []models.Bookmark
	Tags         []models.Tag
	Folders      []models.Folder
	FolderCounts map[string]int
}

func (l *Library) Page(ctx context.Context, owner types.UserId, filter query.Filter) (*Page, error) {
	bookmarks, err := l.Store.List(ctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	tags, err := l.Store.Tags(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	folders, err := l.Store.Folders(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	counts, err := l.Store.FolderCounts(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("count folders: %w", err)
	}
	return &Page{
		Filter:       filter,
		Bookmarks:    bookmarks,
		Tags:         tags,
		Folders:      folders,
		FolderCounts: counts,
	}, nil
}

func (l *Library) CreateFolder(ctx context.Context, owner types.UserId, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("name", "Folder name is required")
	}
	folder, err := l.Store.CreateFolder(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return folder, nil
}

func (l *Library) Folders(ctx context.Context, owner types.UserId) ([]models.Folder, error) {
	folders, err := l.Store.Folders(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}
