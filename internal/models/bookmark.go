package models

import (
	"strings"
	"time"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/query"
	"github.com/arashthr/shelf/internal/types"
)

type Bookmark struct {
	ID          types.BookmarkId
	UserID      types.UserId
	URL         string
	Title       string
	Description *string
	Summary     *string
	Favicon     *string
	FolderID    *types.FolderId
	// Version grows by one on every write and backs optimistic concurrency.
	Version   int
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Tag struct {
	ID     types.TagId
	UserID types.UserId
	Name   string
}

type Folder struct {
	ID        types.FolderId
	UserID    types.UserId
	Name      string
	CreatedAt time.Time
}

type NewBookmark struct {
	UserID      types.UserId
	URL         string
	Title       string
	Description *string
	Summary     *string
	Favicon     *string
	FolderID    *types.FolderId
}

// BookmarkUpdate is a partial update. Nil fields are left untouched. For the
// nullable fields a pointer to "" clears the column.
type BookmarkUpdate struct {
	URL         *string
	Title       *string
	Description *string
	Summary     *string
	Favicon     *string
	FolderID    *types.FolderId
	// ExpectedVersion, when set, rejects the write with a ConflictError unless
	// it matches the stored version.
	ExpectedVersion *int
}

func (nb NewBookmark) validate() error {
	if strings.TrimSpace(nb.URL) == "" {
		return errors.Validation("url", "URL is required")
	}
	if strings.TrimSpace(nb.Title) == "" {
		return errors.Validation("title", "Title is required")
	}
	return nil
}

func (u BookmarkUpdate) validate() error {
	if u.URL != nil && strings.TrimSpace(*u.URL) == "" {
		return errors.Validation("url", "URL is required")
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return errors.Validation("title", "Title is required")
	}
	return nil
}

type assignment struct {
	column string
	value  any
}

// assignments lists the columns an update writes, in a stable order.
func (u BookmarkUpdate) assignments() []assignment {
	var out []assignment
	if u.URL != nil {
		out = append(out, assignment{"url", strings.TrimSpace(*u.URL)})
	}
	if u.Title != nil {
		out = append(out, assignment{"title", strings.TrimSpace(*u.Title)})
	}
	if u.Description != nil {
		out = append(out, assignment{"description", nullable(*u.Description)})
	}
	if u.Summary != nil {
		out = append(out, assignment{"summary", nullable(*u.Summary)})
	}
	if u.Favicon != nil {
		out = append(out, assignment{"favicon", nullable(*u.Favicon)})
	}
	if u.FolderID != nil {
		out = append(out, assignment{"folder_id", nullable(string(*u.FolderID))})
	}
	return out
}

// setClause renders the SET list of an update. The first placeholder used
// is start; the values are returned in placeholder order.
func setClause(u BookmarkUpdate, d query.Dialect, start int, now any) (string, []any) {
	parts := []string{"version = version + 1"}
	var args []any
	for _, a := range u.assignments() {
		args = append(args, a.value)
		parts = append(parts, a.column+" = "+d.Placeholder(start+len(args)-1))
	}
	args = append(args, now)
	parts = append(parts, "updated_at = "+d.Placeholder(start+len(args)-1))
	return strings.Join(parts, ", "), args
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// UniqueTagNames trims names, drops empty ones and removes duplicates while
// keeping the first occurrence order. Matching is case sensitive.
func UniqueTagNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func uniqueTagIDs(ids []types.TagId) []types.TagId {
	seen := make(map[types.TagId]bool, len(ids))
	out := make([]types.TagId, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func orderTags(names []string, byName map[string]Tag) []Tag {
	tags := make([]Tag, 0, len(names))
	for _, name := range names {
		if tag, ok := byName[name]; ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

func folderCountKey(folderID *string) string {
	if folderID == nil || *folderID == "" {
		return types.UncategorizedFolder
	}
	return *folderID
}

func unknownFolder() error {
	return errors.Validation("folder", "Folder does not exist")
}
