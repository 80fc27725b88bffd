package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

var postColumns = []string{"id", "name", "created_by_id", "created_at", "updated_at"}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreatePost(ctx context.Context, name, authorID string) (*domain.Post, error) {
	sqlStr, args, err := r.qb().Insert("posts").
		Columns("name", "created_by_id").
		Values(name, authorID).
		Suffix("RETURNING id, name, created_by_id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPost(r.pool.QueryRow(ctx, sqlStr, args...))
	return p, mapError(err, "post")
}

func (r *Repository) LatestPost(ctx context.Context, authorID string) (*domain.Post, error) {
	sqlStr, args, err := r.qb().Select(postColumns...).From("posts").
		Where(sq.Eq{"created_by_id": authorID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPost(r.pool.QueryRow(ctx, sqlStr, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, mapError(err, "post")
}

func (r *Repository) ListPosts(ctx context.Context, authorID string) ([]domain.Post, error) {
	sqlStr, args, err := r.qb().Select(postColumns...).From("posts").
		Where(sq.Eq{"created_by_id": authorID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(err, "list posts")
	}
	defer rows.Close()

	var out []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repository) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	sqlStr, args, err := r.qb().Select(postColumns...).From("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPost(r.pool.QueryRow(ctx, sqlStr, args...))
	return p, mapError(err, "post")
}

func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	sqlStr, args, err := r.qb().Delete("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return mapError(err, "post")
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "post")
	}
	return nil
}
