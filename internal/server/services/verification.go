package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/verificationtokens"
)

// maxCodeAttempts bounds how many fresh codes Issue draws when the one it
// generated is already held by another user.
const maxCodeAttempts = 5

var errCodeSpaceBusy = errors.New("no free verification code after retries")

// VerificationLedger manages the single active email verification code of each user.
type VerificationLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         func() time.Time
	newCode     func() (string, error)
	logger      logging.Logger
}

func NewVerificationLedger(db *sql.DB, m repomanager.RepositoryManager, ttl time.Duration, now func() time.Time, newCode func() (string, error), logger logging.Logger) *VerificationLedger {
	return &VerificationLedger{
		db:          db,
		repomanager: m,
		ttl:         ttl,
		now:         now,
		newCode:     newCode,
		logger:      logger,
	}
}

// Issue replaces any code userID holds with a new one and returns it. The
// replacement is a single upsert keyed on the user, so concurrent calls for
// the same user leave exactly one code behind.
func (l *VerificationLedger) Issue(ctx context.Context, userID int64) (string, error) {
	repo := l.repomanager.VerificationTokens(l.db)

	expiresAt := l.now().Add(l.ttl)

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := l.newCode()
		if err != nil {
			return "", common.Internal("Failed to generate verification code", err)
		}

		err = repo.Upsert(ctx, userID, code, expiresAt)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) {
			return "", common.Internal("Failed to store verification token", err)
		}
		l.logger.Debug(ctx, "verification code collision", "attempt", attempt)
	}

	return "", common.Internal("Failed to store verification token", errCodeSpaceBusy)
}

// Consume redeems code and marks its owner verified. The row delete and the
// user update commit together; if a concurrent call already removed the row
// the code is reported invalid.
func (l *VerificationLedger) Consume(ctx context.Context, code string) (int64, error) {
	repo := l.repomanager.VerificationTokens(l.db)

	vt, err := repo.Find(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, ErrInvalidVerificationToken
		}
		return 0, common.Internal("Failed to look up verification token", err)
	}

	if vt.Expired(l.now()) {
		l.cleanupExpired(ctx, repo, vt.Token)
		return 0, ErrVerificationTokenExpired
	}

	err = dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		removed, err := l.repomanager.VerificationTokens(tx).Delete(ctx, vt.Token)
		if err != nil {
			return common.Internal("Failed to verify user", err)
		}
		if !removed {
			return ErrInvalidVerificationToken
		}

		if err := l.repomanager.Users(tx).MarkEmailVerified(ctx, vt.UserID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return ErrInvalidVerificationToken
			}
			return common.Internal("Failed to verify user", err)
		}
		return nil
	})
	if err != nil {
		var ce *common.Error
		if !errors.As(err, &ce) {
			err = common.Internal("Failed to verify user", err)
		}
		return 0, err
	}

	return vt.UserID, nil
}

func (l *VerificationLedger) cleanupExpired(ctx context.Context, repo verificationtokens.Repository, token string) {
	if _, err := repo.Delete(ctx, token); err != nil {
		l.logger.Warn(ctx, "expired verification token cleanup failed", "error", err)
	}
}
