package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// RefreshLedger issues, rotates and revokes server-stored refresh tokens.
// A token is valid while its row exists and has not expired; redeeming it
// deletes the row, so every token works at most once.
type RefreshLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         func() time.Time
	newToken    func() (string, error)
	logger      logging.Logger
}

func NewRefreshLedger(db *sql.DB, m repomanager.RepositoryManager, ttl time.Duration, now func() time.Time, newToken func() (string, error), logger logging.Logger) *RefreshLedger {
	return &RefreshLedger{
		db:          db,
		repomanager: m,
		ttl:         ttl,
		now:         now,
		newToken:    newToken,
		logger:      logger,
	}
}

// Issue stores a fresh token for userID that expires after the ledger TTL.
func (l *RefreshLedger) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := l.newToken()
	if err != nil {
		return "", common.Internal("Failed to generate refresh token", err)
	}

	repo := l.repomanager.RefreshTokens(l.db)
	if err := repo.Create(ctx, userID, token, l.now().Add(l.ttl)); err != nil {
		return "", common.Internal("Failed to store refresh token", err)
	}
	return token, nil
}

// Redeem consumes token and returns its owner. Unknown tokens and tokens
// already consumed by a concurrent call fail with ErrInvalidRefreshToken;
// expired ones are removed and fail with ErrRefreshTokenExpired.
func (l *RefreshLedger) Redeem(ctx context.Context, token string) (int64, error) {
	repo := l.repomanager.RefreshTokens(l.db)

	rt, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, ErrInvalidRefreshToken
		}
		return 0, common.Internal("Failed to look up refresh token", err)
	}

	if rt.Expired(l.now()) {
		l.cleanupExpired(ctx, repo, token)
		return 0, ErrRefreshTokenExpired
	}

	removed, err := repo.Delete(ctx, token)
	if err != nil {
		return 0, common.Internal("Failed to rotate token", err)
	}
	if !removed {
		return 0, ErrInvalidRefreshToken
	}

	return rt.UserID, nil
}

// Revoke deletes token. Unknown tokens are not an error.
func (l *RefreshLedger) Revoke(ctx context.Context, token string) error {
	if _, err := l.repomanager.RefreshTokens(l.db).Delete(ctx, token); err != nil {
		return common.Internal("Failed to revoke refresh token", err)
	}
	return nil
}

// cleanupExpired is advisory: the token is already rejected, so a failed
// delete is only logged.
func (l *RefreshLedger) cleanupExpired(ctx context.Context, repo refreshtokens.Repository, token string) {
	if _, err := repo.Delete(ctx, token); err != nil {
		l.logger.Warn(ctx, "expired refresh token cleanup failed", "error", err)
	}
}
