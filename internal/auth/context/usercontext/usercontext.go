package usercontext

import (
	"context"

	"github.com/arashthr/shelf/internal/models"
)

type key string

const userKey key = "userKey"

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func User(ctx context.Context) *models.User {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok {
		// Most likely the session middleware did not run
		return nil
	}
	return user
}
