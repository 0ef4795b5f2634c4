package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

// UserRepository implements port.UserRepository against the auth schema.
// Only the auth-relevant columns are read or written; profile data belongs to
// the user-service.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var userColumns = []string{
	"id",
	"email",
	"password_hash",
	"two_factor_enabled",
	"two_factor_secret",
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, normalizedEmail string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": normalizedEmail})
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *UserRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From("auth.users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var user domain.User
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.TwoFactorEnabled,
		&user.TwoFactorSecret,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	return &user, nil
}

// Save updates the auth-relevant columns of an existing user.
func (r *UserRepository) Save(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Update("auth.users").
		Set("two_factor_enabled", user.TwoFactorEnabled).
		Set("two_factor_secret", user.TwoFactorSecret).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
