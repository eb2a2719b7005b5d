package models

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/query"
	"github.com/arashthr/shelf/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookmarkStore is what both the PostgreSQL and SQLite models offer.
type bookmarkStore interface {
	Create(ctx context.Context, nb NewBookmark) (*Bookmark, error)
	Get(ctx context.Context, owner types.UserId, id types.BookmarkId) (*Bookmark, error)
	Update(ctx context.Context, owner types.UserId, id types.BookmarkId, u BookmarkUpdate) (*Bookmark, error)
	Delete(ctx context.Context, owner types.UserId, id types.BookmarkId) error
	List(ctx context.Context, owner types.UserId, filter query.Filter) ([]Bookmark, error)
	ResolveOrCreateTags(ctx context.Context, owner types.UserId, names []string) ([]Tag, error)
	ReplaceBookmarkTags(ctx context.Context, owner types.UserId, id types.BookmarkId, tagIDs []types.TagId) error
	FolderCounts(ctx context.Context, owner types.UserId) (map[string]int, error)
	Tags(ctx context.Context, owner types.UserId) ([]Tag, error)
	Folders(ctx context.Context, owner types.UserId) ([]Folder, error)
	CreateFolder(ctx context.Context, owner types.UserId, name string) (*Folder, error)
}

type storeFixture struct {
	store bookmarkStore
	alice types.UserId
	bob   types.UserId
}

// tickingClock returns a clock that advances one second per call so that
// created_at ordering is deterministic.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func ptr[T any](v T) *T {
	return &v
}

func ids(bookmarks []Bookmark) []types.BookmarkId {
	out := make([]types.BookmarkId, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = b.ID
	}
	return out
}

func mustCreate(t *testing.T, s bookmarkStore, owner types.UserId, title string, description *string, tags ...string) *Bookmark {
	t.Helper()
	ctx := context.Background()
	b, err := s.Create(ctx, NewBookmark{UserID: owner, URL: "https://example.com/" + title, Title: title, Description: description})
	require.NoError(t, err)
	if len(tags) > 0 {
		resolved, err := s.ResolveOrCreateTags(ctx, owner, tags)
		require.NoError(t, err)
		tagIDs := make([]types.TagId, len(resolved))
		for i, tag := range resolved {
			tagIDs[i] = tag.ID
		}
		require.NoError(t, s.ReplaceBookmarkTags(ctx, owner, b.ID, tagIDs))
	}
	return b
}

func runStoreSuite(t *testing.T, newFixture func(t *testing.T) storeFixture) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.store.Create(ctx, NewBookmark{
			UserID:      f.alice,
			URL:         "https://go.dev",
			Title:       "Go",
			Description: ptr("The Go language"),
			Favicon:     ptr("https://go.dev/favicon.ico"),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, created.Version)

		got, err := f.store.Get(ctx, f.alice, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Go", got.Title)
		assert.Equal(t, "The Go language", *got.Description)
		assert.Nil(t, got.Summary)
		assert.Nil(t, got.FolderID)
		assert.Empty(t, got.Tags)
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("create requires url and title", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Create(ctx, NewBookmark{UserID: f.alice, URL: " ", Title: "x"})
		var verr *errors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "url", verr.Field)

		_, err = f.store.Create(ctx, NewBookmark{UserID: f.alice, URL: "https://x.dev", Title: ""})
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "title", verr.Field)
	})

	t.Run("owner isolation", func(t *testing.T) {
		f := newFixture(t)
		bobs := mustCreate(t, f.store, f.bob, "bob-only", nil, "secret")
		mustCreate(t, f.store, f.alice, "alice-only", nil)

		_, err := f.store.Get(ctx, f.alice, bobs.ID)
		assert.ErrorIs(t, err, errors.ErrNotFound)
		_, err = f.store.Update(ctx, f.alice, bobs.ID, BookmarkUpdate{Title: ptr("stolen")})
		assert.ErrorIs(t, err, errors.ErrNotFound)
		assert.ErrorIs(t, f.store.Delete(ctx, f.alice, bobs.ID), errors.ErrNotFound)
		assert.ErrorIs(t, f.store.ReplaceBookmarkTags(ctx, f.alice, bobs.ID, nil), errors.ErrNotFound)

		list, err := f.store.List(ctx, f.alice, query.Filter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "alice-only", list[0].Title)

		tagged, err := f.store.List(ctx, f.alice, query.Filter{Tag: "secret"})
		require.NoError(t, err)
		assert.Empty(t, tagged)

		still, err := f.store.Get(ctx, f.bob, bobs.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob-only", still.Title)
		assert.Equal(t, []string{"secret"}, still.Tags)
	})

	t.Run("partial update bumps version", func(t *testing.T) {
		f := newFixture(t)
		b := mustCreate(t, f.store, f.alice, "before", ptr("desc"))

		updated, err := f.store.Update(ctx, f.alice, b.ID, BookmarkUpdate{Title: ptr("after"), Summary: ptr("short")})
		require.NoError(t, err)
		assert.Equal(t, "after", updated.Title)
		assert.Equal(t, "desc", *updated.Description, "untouched fields keep their value")
		assert.Equal(t, "short", *updated.Summary)
		assert.Equal(t, 2, updated.Version)

		cleared, err := f.store.Update(ctx, f.alice, b.ID, BookmarkUpdate{Description: ptr("")})
		require.NoError(t, err)
		assert.Nil(t, cleared.Description)
		assert.Equal(t, 3, cleared.Version)

		_, err = f.store.Update(ctx, f.alice, b.ID, BookmarkUpdate{Title: ptr("  ")})
		var verr *errors.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		f := newFixture(t)
		b := mustCreate(t, f.store, f.alice, "v", nil)

		_, err := f.store.Update(ctx, f.alice, b.ID, BookmarkUpdate{Title: ptr("first"), ExpectedVersion: ptr(1)})
		require.NoError(t, err)

		_, err = f.store.Update(ctx, f.alice, b.ID, BookmarkUpdate{Title: ptr("second"), ExpectedVersion: ptr(1)})
		var conflict *errors.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, 1, conflict.Expected)
		assert.Equal(t, 2, conflict.Actual)

		got, err := f.store.Get(ctx, f.alice, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Title)

		_, err = f.store.Update(ctx, f.alice, b.ID, BookmarkUpdate{Title: ptr("last writer")})
		assert.NoError(t, err, "updates without a version keep last-writer-wins")
	})

	t.Run("delete cascades tag links only", func(t *testing.T) {
		f := newFixture(t)
		b := mustCreate(t, f.store, f.alice, "gone", nil, "keep")
		require.NoError(t, f.store.Delete(ctx, f.alice, b.ID))

		_, err := f.store.Get(ctx, f.alice, b.ID)
		assert.ErrorIs(t, err, errors.ErrNotFound)
		assert.ErrorIs(t, f.store.Delete(ctx, f.alice, b.ID), errors.ErrNotFound)

		tags, err := f.store.Tags(ctx, f.alice)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "keep", tags[0].Name)
	})

	t.Run("tag names are deduplicated per owner", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.store.ResolveOrCreateTags(ctx, f.alice, []string{"go", " go ", "db", "", "Go"})
		require.NoError(t, err)
		require.Len(t, first, 3)
		assert.Equal(t, "go", first[0].Name)
		assert.Equal(t, "db", first[1].Name)
		assert.Equal(t, "Go", first[2].Name, "matching is case sensitive")

		second, err := f.store.ResolveOrCreateTags(ctx, f.alice, []string{"db", "go"})
		require.NoError(t, err)
		assert.Equal(t, first[1].ID, second[0].ID)
		assert.Equal(t, first[0].ID, second[1].ID)

		bobs, err := f.store.ResolveOrCreateTags(ctx, f.bob, []string{"go"})
		require.NoError(t, err)
		assert.NotEqual(t, first[0].ID, bobs[0].ID)

		all, err := f.store.Tags(ctx, f.alice)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("replace tags swaps the whole set", func(t *testing.T) {
		f := newFixture(t)
		b := mustCreate(t, f.store, f.alice, "tagged", nil, "a", "b")
		got, err := f.store.Get(ctx, f.alice, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got.Tags)

		c, err := f.store.ResolveOrCreateTags(ctx, f.alice, []string{"c"})
		require.NoError(t, err)
		bobTag, err := f.store.ResolveOrCreateTags(ctx, f.bob, []string{"bob"})
		require.NoError(t, err)
		require.NoError(t, f.store.ReplaceBookmarkTags(ctx, f.alice, b.ID, []types.TagId{c[0].ID, c[0].ID, bobTag[0].ID}))

		got, err = f.store.Get(ctx, f.alice, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, got.Tags)
	})

	t.Run("tag filter returns a subset carrying the tag", func(t *testing.T) {
		f := newFixture(t)
		mustCreate(t, f.store, f.alice, "one", nil, "go", "web")
		mustCreate(t, f.store, f.alice, "two", nil, "web")
		mustCreate(t, f.store, f.alice, "three", nil)

		all, err := f.store.List(ctx, f.alice, query.Filter{})
		require.NoError(t, err)
		web, err := f.store.List(ctx, f.alice, query.Filter{Tag: "web"})
		require.NoError(t, err)

		assert.Len(t, web, 2)
		assert.Subset(t, ids(all), ids(web))
		for _, b := range web {
			assert.Contains(t, b.Tags, "web")
		}
		none, err := f.store.List(ctx, f.alice, query.Filter{Tag: "WEB"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("filters are AND-composed", func(t *testing.T) {
		f := newFixture(t)
		folder, err := f.store.CreateFolder(ctx, f.alice, "reading")
		require.NoError(t, err)

		match := mustCreate(t, f.store, f.alice, "Postgres tips", nil, "db")
		_, err = f.store.Update(ctx, f.alice, match.ID, BookmarkUpdate{FolderID: &folder.ID})
		require.NoError(t, err)
		wrongFolder := mustCreate(t, f.store, f.alice, "Postgres internals", nil, "db")
		wrongTag := mustCreate(t, f.store, f.alice, "Postgres admin", nil, "ops")
		_, err = f.store.Update(ctx, f.alice, wrongTag.ID, BookmarkUpdate{FolderID: &folder.ID})
		require.NoError(t, err)
		noText := mustCreate(t, f.store, f.alice, "Redis", ptr("cache"), "db")
		_, err = f.store.Update(ctx, f.alice, noText.ID, BookmarkUpdate{FolderID: &folder.ID})
		require.NoError(t, err)

		got, err := f.store.List(ctx, f.alice, query.Filter{Query: "postgres", Tag: "db", FolderID: folder.ID})
		require.NoError(t, err)
		assert.Equal(t, []types.BookmarkId{match.ID}, ids(got))

		byFolder, err := f.store.List(ctx, f.alice, query.Filter{FolderID: folder.ID})
		require.NoError(t, err)
		assert.Len(t, byFolder, 3)
		assert.NotContains(t, ids(byFolder), wrongFolder.ID)
	})

	t.Run("text search covers title and description", func(t *testing.T) {
		f := newFixture(t)
		inTitle := mustCreate(t, f.store, f.alice, "Learning GO", nil)
		inDesc := mustCreate(t, f.store, f.alice, "Notes", ptr("a go tutorial"))
		mustCreate(t, f.store, f.alice, "Rust", ptr("systems"))
		literal := mustCreate(t, f.store, f.alice, "100% done", nil)

		got, err := f.store.List(ctx, f.alice, query.Filter{Query: "Go"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.BookmarkId{inTitle.ID, inDesc.ID}, ids(got))

		pct, err := f.store.List(ctx, f.alice, query.Filter{Query: "0%"})
		require.NoError(t, err)
		assert.Equal(t, []types.BookmarkId{literal.ID}, ids(pct), "wildcards in the query are literal")

		accented := mustCreate(t, f.store, f.alice, "ÜBER Café", ptr("Straße und Größe"))
		for _, q := range []string{"über", "ÜBER", "CAFÉ", "café", "GRÖ"} {
			got, err := f.store.List(ctx, f.alice, query.Filter{Query: q})
			require.NoError(t, err)
			assert.Equal(t, []types.BookmarkId{accented.ID}, ids(got), "query %q", q)
		}
	})

	t.Run("sort orders", func(t *testing.T) {
		f := newFixture(t)
		c := mustCreate(t, f.store, f.alice, "charlie", nil)
		a := mustCreate(t, f.store, f.alice, "alpha", nil)
		b := mustCreate(t, f.store, f.alice, "bravo", nil)
		upper := mustCreate(t, f.store, f.alice, "Zulu", nil)

		newest, err := f.store.List(ctx, f.alice, query.Filter{Sort: query.SortNewest})
		require.NoError(t, err)
		assert.Equal(t, []types.BookmarkId{upper.ID, b.ID, a.ID, c.ID}, ids(newest))

		oldest, err := f.store.List(ctx, f.alice, query.Filter{Sort: query.SortOldest})
		require.NoError(t, err)
		reversed := ids(oldest)
		for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
			reversed[i], reversed[j] = reversed[j], reversed[i]
		}
		assert.Equal(t, ids(newest), reversed)

		byTitle, err := f.store.List(ctx, f.alice, query.Filter{Sort: query.SortTitle})
		require.NoError(t, err)
		assert.Equal(t, []types.BookmarkId{upper.ID, a.ID, b.ID, c.ID}, ids(byTitle), "binary collation puts upper case first")
		for i := 1; i < len(byTitle); i++ {
			assert.LessOrEqual(t, byTitle[i-1].Title, byTitle[i].Title)
		}

		unknown, err := f.store.List(ctx, f.alice, query.Filter{Sort: "random"})
		require.NoError(t, err)
		assert.Equal(t, ids(newest), ids(unknown))
	})

	t.Run("folder counts sum to the bookmark count", func(t *testing.T) {
		f := newFixture(t)
		work, err := f.store.CreateFolder(ctx, f.alice, "work")
		require.NoError(t, err)
		home, err := f.store.CreateFolder(ctx, f.alice, "home")
		require.NoError(t, err)

		for i, folder := range []*types.FolderId{&work.ID, &work.ID, &home.ID, nil, nil, nil} {
			_, err := f.store.Create(ctx, NewBookmark{
				UserID:   f.alice,
				URL:      "https://example.com",
				Title:    string(rune('a' + i)),
				FolderID: folder,
			})
			require.NoError(t, err)
		}
		mustCreate(t, f.store, f.bob, "not counted", nil)

		counts, err := f.store.FolderCounts(ctx, f.alice)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{
			string(work.ID):           2,
			string(home.ID):           1,
			types.UncategorizedFolder: 3,
		}, counts)

		total := 0
		for _, n := range counts {
			total += n
		}
		all, err := f.store.List(ctx, f.alice, query.Filter{})
		require.NoError(t, err)
		assert.Equal(t, len(all), total)
	})

	t.Run("folders", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.CreateFolder(ctx, f.alice, "zeta")
		require.NoError(t, err)
		_, err = f.store.CreateFolder(ctx, f.alice, "alpha")
		require.NoError(t, err)

		_, err = f.store.CreateFolder(ctx, f.alice, "alpha")
		var verr *errors.ValidationError
		assert.ErrorAs(t, err, &verr)
		_, err = f.store.CreateFolder(ctx, f.bob, "alpha")
		assert.NoError(t, err, "folder names are unique per owner")

		folders, err := f.store.Folders(ctx, f.alice)
		require.NoError(t, err)
		require.Len(t, folders, 2)
		assert.Equal(t, "alpha", folders[0].Name)
		assert.Equal(t, "zeta", folders[1].Name)

		bobFolders, err := f.store.Folders(ctx, f.bob)
		require.NoError(t, err)
		_, err = f.store.Create(ctx, NewBookmark{UserID: f.alice, URL: "https://x.dev", Title: "x", FolderID: &bobFolders[0].ID})
		assert.ErrorAs(t, err, &verr, "another owner's folder cannot be used")
	})
}
