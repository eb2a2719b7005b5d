package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/query"
	"github.com/arashthr/shelf/internal/types"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteBookmarkModel is the SQLite twin of BookmarkModel. It backs the
// local mode of shelfctl and the workflow tests. Timestamps are stored as
// unix microseconds.
type SQLiteBookmarkModel struct {
	DB  *sql.DB
	Now func() time.Time
}

func (model *SQLiteBookmarkModel) now() time.Time {
	now := time.Now
	if model.Now != nil {
		now = model.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteBookmark(row rowScanner) (Bookmark, error) {
	var b Bookmark
	var createdAt, updatedAt int64
	var tags sql.NullString
	err := row.Scan(&b.ID, &b.UserID, &b.URL, &b.Title, &b.Description, &b.Summary, &b.Favicon,
		&b.FolderID, &b.Version, &createdAt, &updatedAt, &tags)
	if err != nil {
		return b, err
	}
	b.CreatedAt = time.UnixMicro(createdAt).UTC()
	b.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	b.Tags = []string{}
	if tags.Valid && tags.String != "" {
		b.Tags = strings.Split(tags.String, query.TagSeparator)
	}
	return b, nil
}

func (model *SQLiteBookmarkModel) Create(ctx context.Context, nb NewBookmark) (*Bookmark, error) {
	if err := nb.validate(); err != nil {
		return nil, err
	}
	if nb.FolderID != nil && *nb.FolderID != "" {
		if err := model.checkFolder(ctx, nb.UserID, *nb.FolderID); err != nil {
			return nil, err
		}
	}

	now := model.now()
	bookmark := Bookmark{
		ID:          types.BookmarkId(uuid.NewString()),
		UserID:      nb.UserID,
		URL:         nb.URL,
		Title:       nb.Title,
		Description: nb.Description,
		Summary:     nb.Summary,
		Favicon:     nb.Favicon,
		FolderID:    nb.FolderID,
		Version:     1,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if bookmark.FolderID != nil && *bookmark.FolderID == "" {
		bookmark.FolderID = nil
	}
	_, err := model.DB.ExecContext(ctx, `
		INSERT INTO bookmarks (id, user_id, url, title, description, summary, favicon, folder_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		bookmark.ID, bookmark.UserID, bookmark.URL, bookmark.Title, bookmark.Description,
		bookmark.Summary, bookmark.Favicon, bookmark.FolderID, now.UnixMicro(), now.UnixMicro())
	if err != nil {
		return nil, fmt.Errorf("bookmark create: %w", sqliteConstraintError(err))
	}
	return &bookmark, nil
}

func (model *SQLiteBookmarkModel) Get(ctx context.Context, owner types.UserId, id types.BookmarkId) (*Bookmark, error) {
	row := model.DB.QueryRowContext(ctx, `
		SELECT `+query.BookmarkColumns+`, `+query.SQLite.TagsColumn()+`
		FROM bookmarks b
		WHERE b.id = ? AND b.user_id = ?`, id, owner)
	bookmark, err := scanSQLiteBookmark(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	return &bookmark, nil
}

func (model *SQLiteBookmarkModel) Update(ctx context.Context, owner types.UserId, id types.BookmarkId, u BookmarkUpdate) (*Bookmark, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	if u.FolderID != nil && *u.FolderID != "" {
		if err := model.checkFolder(ctx, owner, *u.FolderID); err != nil {
			return nil, err
		}
	}

	set, args := setClause(u, query.SQLite, 1, model.now().UnixMicro())
	args = append(args, id, owner)
	stmt := "UPDATE bookmarks SET " + set + " WHERE id = ? AND user_id = ?"
	if u.ExpectedVersion != nil {
		args = append(args, *u.ExpectedVersion)
		stmt += " AND version = ?"
	}

	res, err := model.DB.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("update bookmark: %w", sqliteConstraintError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update bookmark rows: %w", err)
	}
	if affected == 0 {
		return nil, model.missedUpdate(ctx, owner, id, u.ExpectedVersion)
	}
	return model.Get(ctx, owner, id)
}

func (model *SQLiteBookmarkModel) missedUpdate(ctx context.Context, owner types.UserId, id types.BookmarkId, expected *int) error {
	var version int
	err := model.DB.QueryRowContext(ctx, `
		SELECT version FROM bookmarks WHERE id = ? AND user_id = ?`, id, owner).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.ErrNotFound
		}
		return fmt.Errorf("read bookmark version: %w", err)
	}
	if expected == nil {
		return &errors.ConflictError{Expected: version, Actual: version}
	}
	return &errors.ConflictError{Expected: *expected, Actual: version}
}

func (model *SQLiteBookmarkModel) Delete(ctx context.Context, owner types.UserId, id types.BookmarkId) error {
	res, err := model.DB.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ? AND user_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bookmark rows: %w", err)
	}
	if affected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (model *SQLiteBookmarkModel) List(ctx context.Context, owner types.UserId, filter query.Filter) ([]Bookmark, error) {
	st := query.Compose(owner, filter, query.SQLite)
	rows, err := model.DB.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []Bookmark{}
	for rows.Next() {
		b, err := scanSQLiteBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookmarks rows: %w", err)
	}
	return bookmarks, nil
}

func (model *SQLiteBookmarkModel) ResolveOrCreateTags(ctx context.Context, owner types.UserId, names []string) ([]Tag, error) {
	names = UniqueTagNames(names)
	if len(names) == 0 {
		return []Tag{}, nil
	}

	tx, err := model.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin resolve tags: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (id, user_id, name) VALUES (?, ?, ?)
			ON CONFLICT (user_id, name) DO NOTHING`, uuid.NewString(), owner, name)
		if err != nil {
			return nil, fmt.Errorf("create tag: %w", sqliteConstraintError(err))
		}
	}

	args := make([]any, 0, len(names)+1)
	args = append(args, owner)
	for _, name := range names {
		args = append(args, name)
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_id, name FROM tags
		WHERE user_id = ? AND name IN (`+placeholders(len(names))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}
	byName := make(map[string]Tag, len(names))
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		byName[tag.Name] = tag
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve tags rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resolve tags: %w", err)
	}
	return orderTags(names, byName), nil
}

func (model *SQLiteBookmarkModel) ReplaceBookmarkTags(ctx context.Context, owner types.UserId, id types.BookmarkId, tagIDs []types.TagId) error {
	tx, err := model.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tags: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM bookmarks WHERE id = ? AND user_id = ?)`, id, owner).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check bookmark: %w", err)
	}
	if !exists {
		return errors.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookmark_tags WHERE bookmark_id = ?`, id); err != nil {
		return fmt.Errorf("clear bookmark tags: %w", err)
	}
	for _, tagID := range uniqueTagIDs(tagIDs) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookmark_tags (bookmark_id, tag_id)
			SELECT ?, id FROM tags WHERE id = ? AND user_id = ?`, id, tagID, owner)
		if err != nil {
			return fmt.Errorf("link bookmark tag: %w", sqliteConstraintError(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tags: %w", err)
	}
	return nil
}

func (model *SQLiteBookmarkModel) FolderCounts(ctx context.Context, owner types.UserId) (map[string]int, error) {
	rows, err := model.DB.QueryContext(ctx, `
		SELECT folder_id, count(*) FROM bookmarks WHERE user_id = ? GROUP BY folder_id`, owner)
	if err != nil {
		return nil, fmt.Errorf("folder counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var folderID *string
		var count int
		if err := rows.Scan(&folderID, &count); err != nil {
			return nil, fmt.Errorf("scan folder count: %w", err)
		}
		counts[folderCountKey(folderID)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("folder counts rows: %w", err)
	}
	return counts, nil
}

func (model *SQLiteBookmarkModel) Tags(ctx context.Context, owner types.UserId) ([]Tag, error) {
	rows, err := model.DB.QueryContext(ctx, `
		SELECT id, user_id, name FROM tags WHERE user_id = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (model *SQLiteBookmarkModel) Folders(ctx context.Context, owner types.UserId) ([]Folder, error) {
	rows, err := model.DB.QueryContext(ctx, `
		SELECT id, user_id, name, created_at FROM folders WHERE user_id = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []Folder{}
	for rows.Next() {
		var folder Folder
		var createdAt int64
		if err := rows.Scan(&folder.ID, &folder.UserID, &folder.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folder.CreatedAt = time.UnixMicro(createdAt).UTC()
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

func (model *SQLiteBookmarkModel) CreateFolder(ctx context.Context, owner types.UserId, name string) (*Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("name", "Folder name is required")
	}
	folder := Folder{
		ID:        types.FolderId(uuid.NewString()),
		UserID:    owner,
		Name:      name,
		CreatedAt: model.now(),
	}
	_, err := model.DB.ExecContext(ctx, `
		INSERT INTO folders (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		folder.ID, owner, name, folder.CreatedAt.UnixMicro())
	if err != nil {
		var constraint *errors.ConstraintError
		if errors.As(sqliteConstraintError(err), &constraint) {
			return nil, errors.Validation("name", "A folder with this name already exists")
		}
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return &folder, nil
}

func (model *SQLiteBookmarkModel) checkFolder(ctx context.Context, owner types.UserId, folderID types.FolderId) error {
	var exists bool
	err := model.DB.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM folders WHERE id = ? AND user_id = ?)`, folderID, owner).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check folder: %w", err)
	}
	if !exists {
		return unknownFolder()
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sqliteConstraintError(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return &errors.ConstraintError{Constraint: sqlite.ErrorCodeString[sqliteErr.Code()], Err: err}
	}
	return err
}
