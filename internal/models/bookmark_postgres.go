package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/query"
	"github.com/arashthr/shelf/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookmarkModel stores bookmarks, tags and folders in PostgreSQL.
type BookmarkModel struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func (model *BookmarkModel) now() time.Time {
	now := time.Now
	if model.Now != nil {
		now = model.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

func scanBookmark(row pgx.CollectableRow) (Bookmark, error) {
	var b Bookmark
	err := row.Scan(&b.ID, &b.UserID, &b.URL, &b.Title, &b.Description, &b.Summary, &b.Favicon,
		&b.FolderID, &b.Version, &b.CreatedAt, &b.UpdatedAt, &b.Tags)
	return b, err
}

func (model *BookmarkModel) Create(ctx context.Context, nb NewBookmark) (*Bookmark, error) {
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
	_, err := model.Pool.Exec(ctx, `
		INSERT INTO bookmarks (id, user_id, url, title, description, summary, favicon, folder_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $9)`,
		bookmark.ID, bookmark.UserID, bookmark.URL, bookmark.Title, bookmark.Description,
		bookmark.Summary, bookmark.Favicon, bookmark.FolderID, now)
	if err != nil {
		return nil, fmt.Errorf("bookmark create: %w", constraintError(err))
	}
	return &bookmark, nil
}

func (model *BookmarkModel) Get(ctx context.Context, owner types.UserId, id types.BookmarkId) (*Bookmark, error) {
	rows, err := model.Pool.Query(ctx, `
		SELECT `+query.BookmarkColumns+`, `+query.Postgres.TagsColumn()+`
		FROM bookmarks b
		WHERE b.id = $1 AND b.user_id = $2`, id, owner)
	if err != nil {
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	bookmark, err := pgx.CollectExactlyOneRow(rows, scanBookmark)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("collect bookmark: %w", err)
	}
	return &bookmark, nil
}

func (model *BookmarkModel) Update(ctx context.Context, owner types.UserId, id types.BookmarkId, u BookmarkUpdate) (*Bookmark, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	if u.FolderID != nil && *u.FolderID != "" {
		if err := model.checkFolder(ctx, owner, *u.FolderID); err != nil {
			return nil, err
		}
	}

	set, args := setClause(u, query.Postgres, 1, model.now())
	args = append(args, id, owner)
	sql := fmt.Sprintf("UPDATE bookmarks SET %s WHERE id = $%d AND user_id = $%d", set, len(args)-1, len(args))
	if u.ExpectedVersion != nil {
		args = append(args, *u.ExpectedVersion)
		sql += fmt.Sprintf(" AND version = $%d", len(args))
	}

	tag, err := model.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update bookmark: %w", constraintError(err))
	}
	if tag.RowsAffected() == 0 {
		return nil, model.missedUpdate(ctx, owner, id, u.ExpectedVersion)
	}
	return model.Get(ctx, owner, id)
}

// missedUpdate explains why an update touched no row.
func (model *BookmarkModel) missedUpdate(ctx context.Context, owner types.UserId, id types.BookmarkId, expected *int) error {
	var version int
	err := model.Pool.QueryRow(ctx, `
		SELECT version FROM bookmarks WHERE id = $1 AND user_id = $2`, id, owner).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.ErrNotFound
		}
		return fmt.Errorf("read bookmark version: %w", err)
	}
	if expected == nil {
		// The row exists but the update matched nothing. Report it as a conflict
		// rather than claiming success.
		return &errors.ConflictError{Expected: version, Actual: version}
	}
	return &errors.ConflictError{Expected: *expected, Actual: version}
}

func (model *BookmarkModel) Delete(ctx context.Context, owner types.UserId, id types.BookmarkId) error {
	tag, err := model.Pool.Exec(ctx, `DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (model *BookmarkModel) List(ctx context.Context, owner types.UserId, filter query.Filter) ([]Bookmark, error) {
	st := query.Compose(owner, filter, query.Postgres)
	rows, err := model.Pool.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	bookmarks, err := pgx.CollectRows(rows, scanBookmark)
	if err != nil {
		return nil, fmt.Errorf("collect bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (model *BookmarkModel) ResolveOrCreateTags(ctx context.Context, owner types.UserId, names []string) ([]Tag, error) {
	names = UniqueTagNames(names)
	if len(names) == 0 {
		return []Tag{}, nil
	}

	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue(`
			INSERT INTO tags (id, user_id, name) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, name) DO NOTHING`, uuid.NewString(), owner, name)
	}
	if err := model.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("create tags: %w", constraintError(err))
	}

	rows, err := model.Pool.Query(ctx, `
		SELECT id, user_id, name FROM tags WHERE user_id = $1 AND name = ANY($2)`, owner, names)
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Tag])
	if err != nil {
		return nil, fmt.Errorf("collect tags: %w", err)
	}
	byName := make(map[string]Tag, len(found))
	for _, tag := range found {
		byName[tag.Name] = tag
	}
	return orderTags(names, byName), nil
}

// ReplaceBookmarkTags drops every tag of the bookmark and links tagIDs
// instead. Tag ids of other owners are ignored.
func (model *BookmarkModel) ReplaceBookmarkTags(ctx context.Context, owner types.UserId, id types.BookmarkId, tagIDs []types.TagId) error {
	tx, err := model.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace tags: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bookmarks WHERE id = $1 AND user_id = $2)`, id, owner).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check bookmark: %w", err)
	}
	if !exists {
		return errors.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM bookmark_tags WHERE bookmark_id = $1`, id); err != nil {
		return fmt.Errorf("clear bookmark tags: %w", err)
	}
	ids := uniqueTagIDs(tagIDs)
	if len(ids) > 0 {
		raw := make([]string, len(ids))
		for i, tagID := range ids {
			raw[i] = string(tagID)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO bookmark_tags (bookmark_id, tag_id)
			SELECT $1, id FROM tags WHERE user_id = $2 AND id = ANY($3)`, id, owner, raw)
		if err != nil {
			return fmt.Errorf("link bookmark tags: %w", constraintError(err))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace tags: %w", err)
	}
	return nil
}

func (model *BookmarkModel) FolderCounts(ctx context.Context, owner types.UserId) (map[string]int, error) {
	rows, err := model.Pool.Query(ctx, `
		SELECT folder_id, count(*) FROM bookmarks WHERE user_id = $1 GROUP BY folder_id`, owner)
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

func (model *BookmarkModel) Tags(ctx context.Context, owner types.UserId) ([]Tag, error) {
	rows, err := model.Pool.Query(ctx, `
		SELECT id, user_id, name FROM tags WHERE user_id = $1 ORDER BY name COLLATE "C"`, owner)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	tags, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Tag])
	if err != nil {
		return nil, fmt.Errorf("collect tags: %w", err)
	}
	return tags, nil
}

func (model *BookmarkModel) Folders(ctx context.Context, owner types.UserId) ([]Folder, error) {
	rows, err := model.Pool.Query(ctx, `
		SELECT id, user_id, name, created_at FROM folders WHERE user_id = $1 ORDER BY name COLLATE "C"`, owner)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	folders, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Folder])
	if err != nil {
		return nil, fmt.Errorf("collect folders: %w", err)
	}
	return folders, nil
}

func (model *BookmarkModel) CreateFolder(ctx context.Context, owner types.UserId, name string) (*Folder, error) {
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
	_, err := model.Pool.Exec(ctx, `
		INSERT INTO folders (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		folder.ID, owner, name, folder.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, errors.Validation("name", "A folder with this name already exists")
		}
		return nil, fmt.Errorf("create folder: %w", constraintError(err))
	}
	return &folder, nil
}

func (model *BookmarkModel) checkFolder(ctx context.Context, owner types.UserId, folderID types.FolderId) error {
	var exists bool
	err := model.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM folders WHERE id = $1 AND user_id = $2)`, folderID, owner).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check folder: %w", err)
	}
	if !exists {
		return unknownFolder()
	}
	return nil
}

// constraintError turns integrity violations into ConstraintError and
// leaves every other error alone.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation, pgerrcode.ForeignKeyViolation,
		pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return &errors.ConstraintError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}
