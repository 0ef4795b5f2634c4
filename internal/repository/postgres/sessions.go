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

// SessionRepository implements port.SessionRepository for PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var sessionColumns = []string{
	"id",
	"user_id",
	"ip_address",
	"user_agent",
	"created_at",
	"expires_at",
	"remember_me",
	"revoked",
}

// Create inserts a session record.
func (r *SessionRepository) Create(ctx context.Context, session domain.AuthSession) error {
	stmt, args, err := r.builder.Insert("auth.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.IPAddress,
			session.UserAgent,
			session.CreatedAt,
			session.ExpiresAt,
			session.RememberMe,
			session.Revoked,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by identifier.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.AuthSession, error) {
	stmt, args, err := r.builder.Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"id": sessionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	var session domain.AuthSession
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := scanSession(row, &session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}

	return &session, nil
}

// ListByUser returns all sessions for the user ordered by creation time.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.AuthSession, error) {
	stmt, args, err := r.builder.Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.AuthSession
	for rows.Next() {
		var session domain.AuthSession
		if err := scanSession(rows, &session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// Save updates the mutable columns of an existing session.
func (r *SessionRepository) Save(ctx context.Context, session domain.AuthSession) error {
	stmt, args, err := r.builder.Update("auth.sessions").
		Set("revoked", session.Revoked).
		Set("expires_at", session.ExpiresAt).
		Where(squirrel.Eq{"id": session.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanSession(row pgx.Row, session *domain.AuthSession) error {
	return row.Scan(
		&session.ID,
		&session.UserID,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RememberMe,
		&session.Revoked,
	)
}

var _ port.SessionRepository = (*SessionRepository)(nil)
