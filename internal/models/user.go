package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/types"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           types.UserId
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type UserModel struct {
	Pool *pgxpool.Pool
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (us *UserModel) Create(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.Validation("email", "Email is required")
	}
	if len(password) < 8 {
		return nil, errors.Validation("password", "Password must be at least 8 characters")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	user := User{
		Email:        email,
		PasswordHash: string(hashedBytes),
	}
	row := us.Pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id, created_at
	`, email, user.PasswordHash)
	err = row.Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr interface {
			SQLState() string
		}
		if errors.As(err, &pgErr) && pgErr.SQLState() == pgerrcode.UniqueViolation {
			return nil, errors.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (us *UserModel) Get(ctx context.Context, userId types.UserId) (*User, error) {
	rows, err := us.Pool.Query(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, userId)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("collect one user: %w", err)
	}
	return &user, nil
}

func (us *UserModel) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	user := User{
		Email: email,
	}
	row := us.Pool.QueryRow(ctx, `
		SELECT id, password_hash, created_at FROM users WHERE email = $1
	`, email)
	err := row.Scan(&user.ID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return &user, nil
}
