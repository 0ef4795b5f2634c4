package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

// RefreshTokenRepository implements port.RefreshTokenRepository for PostgreSQL.
//
// MarkRotated and MarkGraceUsed rely on conditional UPDATE predicates so at
// most one caller wins a given state transition. This is what keeps two
// concurrent refresh calls from both rotating the same token.
type RefreshTokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRefreshTokenRepository constructs a repository backed by any executor
// that satisfies pgExecutor.
func NewRefreshTokenRepository(exec pgExecutor) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var refreshTokenColumns = []string{
	"id",
	"session_id",
	"token_hash",
	"created_at",
	"expires_at",
	"revoked",
	"rotated_at",
	"grace_used",
}

// Create inserts a refresh token record.
func (r *RefreshTokenRepository) Create(ctx context.Context, token domain.AuthRefreshToken) error {
	stmt, args, err := r.builder.Insert("auth.refresh_tokens").
		Columns(refreshTokenColumns...).
		Values(
			token.ID,
			token.SessionID,
			token.TokenHash,
			token.CreatedAt,
			token.ExpiresAt,
			token.Revoked,
			token.RotatedAt,
			token.GraceUsed,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token by its SHA-256 hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	stmt, args, err := r.builder.Select(refreshTokenColumns...).
		From("auth.refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select refresh token sql: %w", err)
	}

	var token domain.AuthRefreshToken
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := scanRefreshToken(row, &token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select refresh token: %w", err)
	}

	return &token, nil
}

// ListBySession returns all refresh tokens tied to a session.
func (r *RefreshTokenRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.AuthRefreshToken, error) {
	stmt, args, err := r.builder.Select(refreshTokenColumns...).
		From("auth.refresh_tokens").
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list refresh tokens sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.AuthRefreshToken
	for rows.Next() {
		var token domain.AuthRefreshToken
		if err := scanRefreshToken(rows, &token); err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh tokens: %w", err)
	}

	return tokens, nil
}

// MarkRotated stamps rotated_at on a not-yet-rotated token. Returns false when
// another caller already claimed the rotation.
func (r *RefreshTokenRepository) MarkRotated(ctx context.Context, tokenID string, rotatedAt time.Time) (bool, error) {
	stmt, args, err := r.builder.Update("auth.refresh_tokens").
		Set("rotated_at", rotatedAt).
		Where(squirrel.Eq{"id": tokenID}).
		Where("rotated_at IS NULL").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build mark rotated sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("mark refresh token rotated: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkGraceUsed consumes the single grace reuse. Returns false when the grace
// reuse was already consumed.
func (r *RefreshTokenRepository) MarkGraceUsed(ctx context.Context, tokenID string) (bool, error) {
	stmt, args, err := r.builder.Update("auth.refresh_tokens").
		Set("grace_used", true).
		Where(squirrel.Eq{"id": tokenID, "grace_used": false}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build mark grace used sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("mark refresh token grace used: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// RevokeBySession revokes every not-yet-revoked token of a session and
// returns how many rows were affected.
func (r *RefreshTokenRepository) RevokeBySession(ctx context.Context, sessionID string) (int, error) {
	stmt, args, err := r.builder.Update("auth.refresh_tokens").
		Set("revoked", true).
		Where(squirrel.Eq{"session_id": sessionID, "revoked": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke session tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke session tokens: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func scanRefreshToken(row pgx.Row, token *domain.AuthRefreshToken) error {
	return row.Scan(
		&token.ID,
		&token.SessionID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.Revoked,
		&token.RotatedAt,
		&token.GraceUsed,
	)
}

var _ port.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
