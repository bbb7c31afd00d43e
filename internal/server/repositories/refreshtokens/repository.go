// Package refreshtokens declares the server-side repository contract for
// refresh token rows and its PostgreSQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID. A duplicate token value
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Find looks up a refresh token by its opaque token string.
	// It returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string and reports whether a
	// row was actually removed. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) (bool, error)
}
