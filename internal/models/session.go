package models

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/rand"
	"github.com/arashthr/shelf/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const SessionLifetime = 30 * 24 * time.Hour

type Session struct {
	ID        int
	UserId    types.UserId
	TokenHash string
	IPAddress string
	CreatedAt time.Time
	ExpiresAt time.Time
	// Token is only set when creating a new session.
	// It is empty when the session is looked up in the db.
	Token string
}

type SessionService struct {
	Pool *pgxpool.Pool
}

func (ss *SessionService) Create(ctx context.Context, userId types.UserId, ipAddress string) (*Session, error) {
	if err := ss.CleanupExpiredSessions(ctx); err != nil {
		return nil, err
	}

	token, err := rand.SessionToken()
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	expiresAt := time.Now().Add(SessionLifetime)

	session := Session{
		UserId:    userId,
		Token:     token,
		TokenHash: hashToken(token),
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
	}
	row := ss.Pool.QueryRow(ctx, `
		INSERT INTO sessions (user_id, token_hash, ip_address, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`, userId, session.TokenHash, ipAddress, expiresAt)
	err = row.Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("session create: %w", err)
	}
	return &session, nil
}

func (ss *SessionService) User(ctx context.Context, token string) (*User, error) {
	tokenHash := hashToken(token)
	var user User

	row := ss.Pool.QueryRow(ctx, `
		UPDATE sessions SET last_used_at = NOW()
		FROM users
		WHERE users.id = sessions.user_id AND sessions.token_hash = $1 AND sessions.expires_at > NOW()
		RETURNING users.id, users.email, users.password_hash, users.created_at`, tokenHash)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("session user: %w", err)
	}
	return &user, nil
}

func (ss *SessionService) Delete(ctx context.Context, token string) error {
	_, err := ss.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hashToken(token))
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (ss *SessionService) CleanupExpiredSessions(ctx context.Context) error {
	_, err := ss.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return nil
}

func hashToken(token string) string {
	tokenHash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(tokenHash[:])
}
