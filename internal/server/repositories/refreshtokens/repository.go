// Package refreshtokens stores the refresh tokens handed to field clients.
// Tokens are single use: refreshing consumes the presented token and issues
// a new one.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/server/models"
)

type Repository interface {
	// Issue records token for userID until expiresAt.
	Issue(ctx context.Context, userID, token string, expiresAt time.Time) error

	// Consume removes token and returns what it was issued for. An unknown
	// or already consumed token yields common.ErrorNotFound, so two
	// concurrent refreshes with the same token cannot both succeed.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke removes token. Unknown tokens are not an error.
	Revoke(ctx context.Context, token string) error

	// DeleteExpired purges tokens whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
