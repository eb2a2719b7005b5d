// Package query turns list filters into a single SQL retrieval over the
// bookmarks table. Both the PostgreSQL and SQLite stores run the statements
// built here.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/arashthr/shelf/internal/types"
)

type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
	SortTitle  Sort = "title"
)

// ParseSort maps user input to a sort mode. Anything unknown is newest.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortOldest:
		return SortOldest
	case SortTitle:
		return SortTitle
	default:
		return SortNewest
	}
}

// Filter holds the optional list constraints. Zero values mean "no constraint".
type Filter struct {
	Query    string
	Tag      string
	FolderID types.FolderId
	Sort     Sort
}

func ParseFilter(values url.Values) Filter {
	return Filter{
		Query:    strings.TrimSpace(values.Get("q")),
		Tag:      strings.TrimSpace(values.Get("tag")),
		FolderID: types.FolderId(strings.TrimSpace(values.Get("folder"))),
		Sort:     ParseSort(values.Get("sort")),
	}
}

// Values is the inverse of ParseFilter, used to build links that keep the
// current filters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Tag != "" {
		v.Set("tag", f.Tag)
	}
	if f.FolderID != "" {
		v.Set("folder", string(f.FolderID))
	}
	if f.Sort != "" && f.Sort != SortNewest {
		v.Set("sort", string(f.Sort))
	}
	return v
}

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// Placeholder returns the n-th (1 based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// CaseFoldFunc is the Unicode aware lower case function registered with the
// SQLite driver. The built-in lower() of SQLite only folds ASCII.
const CaseFoldFunc = "casefold"

// Fold lower cases expr in SQL.
func (d Dialect) Fold(expr string) string {
	if d == SQLite {
		return CaseFoldFunc + "(" + expr + ")"
	}
	return "lower(" + expr + ")"
}

// BookmarkColumns is the column order every composed statement selects.
// The last column is the bookmark's tag names, see TagsColumn.
const BookmarkColumns = `b.id, b.user_id, b.url, b.title, b.description, b.summary, b.favicon,
	b.folder_id, b.version, b.created_at, b.updated_at`

// TagSeparator joins tag names in the SQLite aggregate.
const TagSeparator = "\x1f"

// TagsColumn selects the sorted tag names of bookmark b. PostgreSQL yields a
// text array; SQLite yields a TagSeparator joined string or NULL.
func (d Dialect) TagsColumn() string {
	if d == SQLite {
		return `(SELECT group_concat(name, char(31)) FROM (
		SELECT t.name FROM bookmark_tags bt JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = b.id ORDER BY t.name)) AS tags`
	}
	return `ARRAY(SELECT t.name FROM bookmark_tags bt JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = b.id ORDER BY t.name COLLATE "C") AS tags`
}

type Statement struct {
	SQL  string
	Args []any
}

type builder struct {
	dialect Dialect
	args    []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

// Compose builds the one statement that lists owner's bookmarks matching f.
// All present filters are AND-ed together.
func Compose(owner types.UserId, f Filter, d Dialect) Statement {
	b := &builder{dialect: d}

	where := []string{"b.user_id = " + b.bind(int(owner))}
	if f.FolderID != "" {
		where = append(where, "b.folder_id = "+b.bind(string(f.FolderID)))
	}
	if f.Query != "" {
		pattern := escapeLike(f.Query)
		where = append(where, "("+d.Fold("b.title")+" LIKE '%' || "+d.Fold(b.bind(pattern))+` || '%' ESCAPE '\'`+
			" OR "+d.Fold("COALESCE(b.description, '')")+" LIKE '%' || "+d.Fold(b.bind(pattern))+` || '%' ESCAPE '\')`)
	}
	if f.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM bookmark_tags bt JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = b.id AND t.name = `+b.bind(f.Tag)+")")
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(BookmarkColumns)
	sql.WriteString(",\n\t")
	sql.WriteString(d.TagsColumn())
	sql.WriteString("\nFROM bookmarks b\nWHERE ")
	sql.WriteString(strings.Join(where, "\n\tAND "))
	sql.WriteString("\nORDER BY ")
	sql.WriteString(orderBy(f.Sort, d))

	return Statement{SQL: sql.String(), Args: b.args}
}

func orderBy(s Sort, d Dialect) string {
	switch ParseSort(string(s)) {
	case SortOldest:
		return "b.created_at ASC, b.id ASC"
	case SortTitle:
		if d == Postgres {
			return `b.title COLLATE "C" ASC, b.id ASC`
		}
		return "b.title ASC, b.id ASC"
	default:
		return "b.created_at DESC, b.id DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
