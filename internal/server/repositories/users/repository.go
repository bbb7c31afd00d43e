// Package users declares the Credential Store contract and its PostgreSQL
// implementation.
package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Uniqueness violations reported by Create. Both match common.ErrorAlreadyExists.
var (
	ErrDuplicateUsername = fmt.Errorf("username %w", common.ErrorAlreadyExists)
	ErrDuplicateEmail    = fmt.Errorf("email %w", common.ErrorAlreadyExists)
)

// Repository persists user records. Lookups return common.ErrorNotFound when
// no row matches.
type Repository interface {
	// Create inserts the user with email_verified = false and fills in user.ID.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// GetUnverifiedByEmail finds a user with that email whose address is not yet verified.
	GetUnverifiedByEmail(ctx context.Context, email string) (*models.User, error)

	// MarkEmailVerified flips email_verified to true. It is idempotent.
	MarkEmailVerified(ctx context.Context, userID int64) error
}
