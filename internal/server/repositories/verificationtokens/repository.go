// Package verificationtokens persists single-use email verification codes.
package verificationtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores at most one code per user; the user_id column is unique.
type Repository interface {
	// Upsert stores the code of userID, replacing the one it held before.
	// A code already held by another user yields common.ErrorAlreadyExists.
	Upsert(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Find returns the row holding token or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.VerificationToken, error)

	// Delete removes the row holding token and reports whether it was still there.
	Delete(ctx context.Context, token string) (bool, error)
}
