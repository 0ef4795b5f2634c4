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

// PendingTwoFactorRepository implements port.PendingTwoFactorRepository.
// Rows are short-lived; expired ones are swept by a scheduled job outside
// this service.
type PendingTwoFactorRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPendingTwoFactorRepository constructs a repository backed by any executor
// that satisfies pgExecutor.
func NewPendingTwoFactorRepository(exec pgExecutor) *PendingTwoFactorRepository {
	return &PendingTwoFactorRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a pending two-factor record.
func (r *PendingTwoFactorRepository) Create(ctx context.Context, pending domain.PendingTwoFactor) error {
	stmt, args, err := r.builder.Insert("auth.pending_two_factor").
		Columns("id", "user_id", "created_at", "expires_at").
		Values(pending.ID, pending.UserID, pending.CreatedAt, pending.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert pending two-factor sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert pending two-factor: %w", err)
	}

	return nil
}

// GetByID retrieves a pending record by identifier.
func (r *PendingTwoFactorRepository) GetByID(ctx context.Context, id string) (*domain.PendingTwoFactor, error) {
	stmt, args, err := r.builder.Select("id", "user_id", "created_at", "expires_at").
		From("auth.pending_two_factor").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select pending two-factor sql: %w", err)
	}

	var pending domain.PendingTwoFactor
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&pending.ID, &pending.UserID, &pending.CreatedAt, &pending.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select pending two-factor: %w", err)
	}

	return &pending, nil
}

// Delete removes a pending record. Deleting an absent row is not an error.
func (r *PendingTwoFactorRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("auth.pending_two_factor").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete pending two-factor sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete pending two-factor: %w", err)
	}

	return nil
}

var _ port.PendingTwoFactorRepository = (*PendingTwoFactorRepository)(nil)

// RecoveryCodeRepository implements port.RecoveryCodeRepository.
type RecoveryCodeRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRecoveryCodeRepository constructs a repository backed by any executor
// that satisfies pgExecutor.
func NewRecoveryCodeRepository(exec pgExecutor) *RecoveryCodeRepository {
	return &RecoveryCodeRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a recovery code hash.
func (r *RecoveryCodeRepository) Create(ctx context.Context, code domain.RecoveryCode) error {
	stmt, args, err := r.builder.Insert("auth.recovery_codes").
		Columns("id", "user_id", "code_hash", "used").
		Values(code.ID, code.UserID, code.CodeHash, code.Used).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert recovery code sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert recovery code: %w", err)
	}

	return nil
}

// ListByUser returns all recovery codes for the user, used ones included.
func (r *RecoveryCodeRepository) ListByUser(ctx context.Context, userID string) ([]domain.RecoveryCode, error) {
	stmt, args, err := r.builder.Select("id", "user_id", "code_hash", "used").
		From("auth.recovery_codes").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list recovery codes sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list recovery codes: %w", err)
	}
	defer rows.Close()

	var codes []domain.RecoveryCode
	for rows.Next() {
		var code domain.RecoveryCode
		if err := rows.Scan(&code.ID, &code.UserID, &code.CodeHash, &code.Used); err != nil {
			return nil, fmt.Errorf("scan recovery code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recovery codes: %w", err)
	}

	return codes, nil
}

// MarkUsed consumes a recovery code.
func (r *RecoveryCodeRepository) MarkUsed(ctx context.Context, codeID string) error {
	stmt, args, err := r.builder.Update("auth.recovery_codes").
		Set("used", true).
		Where(squirrel.Eq{"id": codeID, "used": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark recovery code used sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark recovery code used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteByUser removes every recovery code of a user and returns how many
// rows were deleted.
func (r *RecoveryCodeRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.Delete("auth.recovery_codes").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete recovery codes sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete recovery codes: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.RecoveryCodeRepository = (*RecoveryCodeRepository)(nil)
