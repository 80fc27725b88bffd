package postgres

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

var userColumns = []string{"id", "name", "email", "email_verified", "image"}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Image); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	sqlStr, args, err := r.qb().Select(userColumns...).From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.pool.QueryRow(ctx, sqlStr, args...))
	return u, mapError(err, "user")
}

// GetUserByEmail matches case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	sqlStr, args, err := r.qb().Select(userColumns...).From("users").
		Where(sq.Expr("lower(email) = ?", strings.ToLower(email))).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.pool.QueryRow(ctx, sqlStr, args...))
	return u, mapError(err, "user")
}

func (r *Repository) UpdateProfile(ctx context.Context, id string, name string, image *string) (*domain.User, error) {
	q := r.qb().Update("users").Set("name", name).Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(userColumns, ", "))
	if image != nil {
		q = q.Set("image", *image)
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.pool.QueryRow(ctx, sqlStr, args...))
	return u, mapError(err, "user")
}

// ResolveSession looks the token up in the sessions table. Unknown and
// expired tokens resolve to (nil, nil).
func (r *Repository) ResolveSession(ctx context.Context, token string) (*domain.SessionIdentity, error) {
	sqlStr, args, err := r.qb().
		Select("u.id", "u.email", "u.name", "u.image", "s.expires").
		From("sessions s").
		Join("users u ON u.id = s.user_id").
		Where(sq.Eq{"s.session_token": token}).
		Where(sq.Expr("s.expires > now()")).
		ToSql()
	if err != nil {
		return nil, err
	}

	var id domain.SessionIdentity
	err = r.pool.QueryRow(ctx, sqlStr, args...).Scan(&id.UserID, &id.UserEmail, &id.UserName, &id.UserImage, &id.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "session")
	}
	return &id, nil
}
