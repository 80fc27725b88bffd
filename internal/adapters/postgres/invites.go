package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const inviteReturning = "RETURNING id, workspace_id, email, invited_by_id, status, created_at"

func scanInvite(row pgx.Row) (*domain.Invite, error) {
	var inv domain.Invite
	if err := row.Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.InvitedByID, &inv.Status, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) CreateInvite(ctx context.Context, workspaceID, email, invitedByID string) (*domain.Invite, error) {
	sqlStr, args, err := r.qb().Insert("workspace_invites").
		Columns("workspace_id", "email", "invited_by_id").
		Values(workspaceID, email, invitedByID).
		Suffix(inviteReturning).
		ToSql()
	if err != nil {
		return nil, err
	}
	inv, err := scanInvite(r.pool.QueryRow(ctx, sqlStr, args...))
	return inv, mapError(err, "invite")
}

func (r *Repository) HasPendingInvite(ctx context.Context, workspaceID, email string) (bool, error) {
	sqlStr, args, err := r.qb().
		Select("1").
		From("workspace_invites").
		Where(sq.Eq{"workspace_id": workspaceID, "status": string(domain.InviteStatusPending)}).
		Where(sq.Expr("lower(email) = ?", strings.ToLower(email))).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, err
	}
	var ok bool
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&ok); err != nil {
		return false, mapError(err, "invite")
	}
	return ok, nil
}

func (r *Repository) ListPendingInvites(ctx context.Context, email string) ([]domain.InviteDetails, error) {
	sqlStr, args, err := r.qb().
		Select("i.id", "i.workspace_id", "i.email", "i.invited_by_id", "i.status", "i.created_at",
			"w.name", "u.id", "u.name", "u.email", "u.image").
		From("workspace_invites i").
		Join("workspaces w ON w.id = i.workspace_id").
		Join("users u ON u.id = i.invited_by_id").
		Where(sq.Eq{"i.status": string(domain.InviteStatusPending)}).
		Where(sq.Expr("lower(i.email) = ?", strings.ToLower(email))).
		OrderBy("i.created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(err, "list invites")
	}
	defer rows.Close()

	var out []domain.InviteDetails
	for rows.Next() {
		var d domain.InviteDetails
		if err := rows.Scan(&d.ID, &d.WorkspaceID, &d.Email, &d.InvitedByID, &d.Status, &d.CreatedAt,
			&d.WorkspaceName, &d.InvitedBy.ID, &d.InvitedBy.Name, &d.InvitedBy.Email, &d.InvitedBy.Image); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) GetInvite(ctx context.Context, id string) (*domain.Invite, error) {
	sqlStr, args, err := r.qb().
		Select("id", "workspace_id", "email", "invited_by_id", "status", "created_at").
		From("workspace_invites").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	inv, err := scanInvite(r.pool.QueryRow(ctx, sqlStr, args...))
	return inv, mapError(err, "invite")
}

func (r *Repository) AcceptInvite(ctx context.Context, inviteID, workspaceID, userID string) error {
	insertMember, memberArgs, err := r.qb().Insert("workspace_members").
		Columns("workspace_id", "user_id", "role").
		Values(workspaceID, userID, string(domain.RoleMember)).
		Suffix("ON CONFLICT (workspace_id, user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	markAccepted, acceptArgs, err := r.qb().Update("workspace_invites").
		Set("status", string(domain.InviteStatusAccepted)).
		Where(sq.Eq{"id": inviteID, "status": string(domain.InviteStatusPending)}).
		ToSql()
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, markAccepted, acceptArgs...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: invite is no longer pending", domain.ErrConflict)
		}
		_, err = tx.Exec(ctx, insertMember, memberArgs...)
		return err
	})
	return mapError(err, "accept invite")
}
