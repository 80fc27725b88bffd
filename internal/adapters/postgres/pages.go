package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

var pageColumns = []string{
	"p.id", "p.title", "p.content", "p.emoji", "p.cover_image", "p.crdt_state", "p.is_archived",
	"p.workspace_id", "p.parent_id", "p.created_by_id", "p.created_at", "p.updated_at",
	"u.id", "u.name", "u.email", "u.image",
}

func (r *Repository) ListWorkspacePages(ctx context.Context, workspaceID string) ([]domain.PageSummary, error) {
	sqlStr, args, err := r.qb().
		Select("p.id", "p.title", "p.emoji", "p.parent_id", "p.created_at", "p.updated_at",
			"u.id", "u.name", "u.email", "u.image").
		From("pages p").
		Join("users u ON u.id = p.created_by_id").
		Where(sq.Eq{"p.workspace_id": workspaceID, "p.is_archived": false}).
		OrderBy("p.created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(err, "list pages")
	}
	defer rows.Close()

	var out []domain.PageSummary
	for rows.Next() {
		var p domain.PageSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.Emoji, &p.ParentID, &p.CreatedAt, &p.UpdatedAt,
			&p.CreatedBy.ID, &p.CreatedBy.Name, &p.CreatedBy.Email, &p.CreatedBy.Image); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.Children = []domain.PageRef{}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	children, err := r.childrenOf(ctx, sq.Eq{"workspace_id": workspaceID})
	if err != nil {
		return nil, err
	}
	for i := range out {
		if kids, ok := children[out[i].ID]; ok {
			out[i].Children = kids
		}
	}
	return out, nil
}

// childrenOf returns non-archived child pages matching where, grouped by
// parent and ordered oldest first.
func (r *Repository) childrenOf(ctx context.Context, where sq.Sqlizer) (map[string][]domain.PageRef, error) {
	sqlStr, args, err := r.qb().
		Select("id", "title", "emoji", "parent_id").
		From("pages").
		Where(where).
		Where(sq.Eq{"is_archived": false}).
		Where(sq.NotEq{"parent_id": nil}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(err, "list child pages")
	}
	defer rows.Close()

	out := make(map[string][]domain.PageRef)
	for rows.Next() {
		var ref domain.PageRef
		var parentID string
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Emoji, &parentID); err != nil {
			return nil, fmt.Errorf("scan child page: %w", err)
		}
		out[parentID] = append(out[parentID], ref)
	}
	return out, rows.Err()
}

func (r *Repository) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	sqlStr, args, err := r.qb().
		Select(pageColumns...).
		From("pages p").
		Join("users u ON u.id = p.created_by_id").
		Where(sq.Eq{"p.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p domain.Page
	err = r.pool.QueryRow(ctx, sqlStr, args...).Scan(&p.ID, &p.Title, &p.Content, &p.Emoji, &p.CoverImage,
		&p.CRDTState, &p.IsArchived, &p.WorkspaceID, &p.ParentID, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt,
		&p.CreatedBy.ID, &p.CreatedBy.Name, &p.CreatedBy.Email, &p.CreatedBy.Image)
	if err != nil {
		return nil, mapError(err, "page")
	}

	children, err := r.childrenOf(ctx, sq.Eq{"parent_id": id})
	if err != nil {
		return nil, err
	}
	p.Children = children[id]
	if p.Children == nil {
		p.Children = []domain.PageRef{}
	}
	return &p, nil
}

func (r *Repository) CreatePage(ctx context.Context, page domain.Page) (*domain.Page, error) {
	sqlStr, args, err := r.qb().Insert("pages").
		Columns("title", "emoji", "workspace_id", "parent_id", "created_by_id").
		Values(page.Title, page.Emoji, page.WorkspaceID, page.ParentID, page.CreatedByID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var id string
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&id); err != nil {
		return nil, mapError(err, "page")
	}
	return r.GetPage(ctx, id)
}

func (r *Repository) UpdatePage(ctx context.Context, id string, update domain.PageUpdate) (*domain.Page, error) {
	q := r.qb().Update("pages").Set("updated_at", sq.Expr("now()")).Where(sq.Eq{"id": id})
	if update.Title != nil {
		q = q.Set("title", *update.Title)
	}
	if update.Content != nil {
		q = q.Set("content", *update.Content)
	}
	if update.Emoji != nil {
		q = q.Set("emoji", *update.Emoji)
	}
	if update.CoverImage != nil {
		q = q.Set("cover_image", *update.CoverImage)
	}
	if err := r.execOne(ctx, q, "page"); err != nil {
		return nil, err
	}
	return r.GetPage(ctx, id)
}

func (r *Repository) SaveCRDTState(ctx context.Context, id string, state []byte) error {
	q := r.qb().Update("pages").
		Set("crdt_state", state).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id})
	return r.execOne(ctx, q, "page")
}

func (r *Repository) ArchivePage(ctx context.Context, id string) (*domain.Page, error) {
	q := r.qb().Update("pages").
		Set("is_archived", true).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id})
	if err := r.execOne(ctx, q, "page"); err != nil {
		return nil, err
	}
	return r.GetPage(ctx, id)
}

func (r *Repository) ListPagesCreatedBy(ctx context.Context, userID string) ([]domain.AuthoredPage, error) {
	sqlStr, args, err := r.qb().
		Select("id", "workspace_id").
		From("pages").
		Where(sq.Eq{"created_by_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(err, "list authored pages")
	}
	defer rows.Close()

	var out []domain.AuthoredPage
	for rows.Next() {
		var p domain.AuthoredPage
		if err := rows.Scan(&p.ID, &p.WorkspaceID); err != nil {
			return nil, fmt.Errorf("scan authored page: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// execOne runs an update that must touch exactly one row.
func (r *Repository) execOne(ctx context.Context, q sq.UpdateBuilder, what string) error {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return mapError(err, what)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, what)
	}
	return nil
}
