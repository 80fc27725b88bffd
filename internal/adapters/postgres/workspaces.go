package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

func (r *Repository) ListWorkspacesForUser(ctx context.Context, userID string) ([]domain.WorkspaceWithRole, error) {
	sqlStr, args, err := r.qb().
		Select("w.id", "w.name", "w.description", "w.created_at", "w.updated_at", "m.role").
		From("workspaces w").
		Join("workspace_members m ON m.workspace_id = w.id").
		Where(sq.Eq{"m.user_id": userID}).
		OrderBy("w.created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(err, "list workspaces")
	}
	defer rows.Close()

	var out []domain.WorkspaceWithRole
	for rows.Next() {
		var w domain.WorkspaceWithRole
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt, &w.UpdatedAt, &w.Role); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repository) CreateWorkspace(ctx context.Context, name string, description *string, ownerID string) (*domain.Workspace, error) {
	insertWS, wsArgs, err := r.qb().Insert("workspaces").
		Columns("name", "description", "created_by_id").
		Values(name, description, ownerID).
		Suffix("RETURNING id, name, description, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	var ws domain.Workspace
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertWS, wsArgs...).
			Scan(&ws.ID, &ws.Name, &ws.Description, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return err
		}
		insertMember, memberArgs, err := r.qb().Insert("workspace_members").
			Columns("workspace_id", "user_id", "role").
			Values(ws.ID, ownerID, string(domain.RoleOwner)).
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, insertMember, memberArgs...)
		return err
	})
	if err != nil {
		return nil, mapError(err, "workspace")
	}
	return &ws, nil
}

func (r *Repository) GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error) {
	sqlStr, args, err := r.qb().
		Select("id", "name", "description", "created_at", "updated_at").
		From("workspaces").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var ws domain.Workspace
	err = r.pool.QueryRow(ctx, sqlStr, args...).Scan(&ws.ID, &ws.Name, &ws.Description, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "workspace")
	}
	return &ws, nil
}

func (r *Repository) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	sqlStr, args, err := r.qb().
		Select("1").
		From("workspace_members").
		Where(sq.Eq{"workspace_id": workspaceID, "user_id": userID}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, err
	}
	var ok bool
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&ok); err != nil {
		return false, mapError(err, "membership")
	}
	return ok, nil
}
