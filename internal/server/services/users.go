// Package services contains server-side business logic. UserService runs the
// identity lifecycle: registration, login, token rotation, logout and email
// verification, on top of the two token ledgers.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/events"
	"github.com/dmitrijs2005/authkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/telemetry"
)

const minPasswordLength = 8

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

// RegisterRequest carries the self-registration form.
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	// Role defaults to models.RoleUser when empty.
	Role models.Role
}

// PasswordHasher hashes and checks passwords. VerifyPassword returns an error
// only when the stored hash cannot be parsed.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, encoded string) (bool, error)
}

type argon2Hasher struct {
	params cryptox.Argon2Params
}

func (h argon2Hasher) HashPassword(password string) (string, error) {
	return cryptox.HashPasswordWithParams(password, h.params)
}

func (h argon2Hasher) VerifyPassword(password, encoded string) (bool, error) {
	return cryptox.VerifyPassword(password, encoded)
}

// UserService provides the identity lifecycle operations.
type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	issuer          *auth.Issuer
	refreshTokens   *RefreshLedger
	verification    *VerificationLedger
	mailer          mailer.Sender
	events          events.Publisher
	hasher          PasswordHasher
	dummyHash       string
	appURL          string
	verificationTTL time.Duration
	now             func() time.Time
	logger          logging.Logger
}

type Option func(*UserService)

// WithClock replaces time.Now for every expiry computation and check.
func WithClock(now func() time.Time) Option {
	return func(s *UserService) { s.now = now }
}

func WithPasswordHasher(h PasswordHasher) Option {
	return func(s *UserService) { s.hasher = h }
}

func WithEvents(p events.Publisher) Option {
	return func(s *UserService) { s.events = p }
}

func WithLogger(l logging.Logger) Option {
	return func(s *UserService) { s.logger = l }
}

// NewUserService wires the service from the server config. Secrets and
// lifetimes are read from cfg once, here.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, sender mailer.Sender, opts ...Option) *UserService {
	s := &UserService{
		db:              db,
		repomanager:     m,
		mailer:          sender,
		events:          events.Noop{},
		hasher:          argon2Hasher{params: cryptox.DefaultParams},
		appURL:          cfg.AppURL,
		verificationTTL: cfg.VerificationTokenValidityDuration,
		now:             time.Now,
		logger:          logging.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("module", "users")

	// Login verifies against this hash when the user is unknown.
	if h, err := s.hasher.HashPassword("authkeeper-unknown-user"); err == nil {
		s.dummyHash = h
	}

	s.issuer = auth.NewIssuer([]byte(cfg.SecretKey), cfg.Audience, cfg.AccessTokenValidityDuration, auth.WithClock(s.now))
	s.refreshTokens = NewRefreshLedger(db, m, cfg.RefreshTokenValidityDuration, s.now, cryptox.NewRefreshToken, s.logger)
	s.verification = NewVerificationLedger(db, m, s.verificationTTL, s.now, cryptox.NewVerificationCode, s.logger)
	return s
}

// Issuer exposes the access token issuer for request authentication.
func (s *UserService) Issuer() *auth.Issuer {
	return s.issuer
}

func isValidEmail(email string) bool {
	return strings.Contains(email, "@") && len(email) >= 3 && strings.Contains(email, ".")
}

func validateRegistration(req *RegisterRequest) error {
	if strings.TrimSpace(req.Username) == "" {
		return ErrUsernameRequired
	}
	role, err := models.ParseRole(string(req.Role))
	if err != nil {
		return ErrInvalidRole
	}
	if !isValidEmail(req.Email) {
		return ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if role == models.RoleAdmin {
		return ErrAdminSelfRegister
	}
	return nil
}

// Register creates an unverified user, issues a verification code and mails
// it. It returns the new user id. A failure after the insert leaves the user
// in place; the caller can ask for a resend.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (id int64, err error) {
	defer func() { telemetry.ObserveOperation("register", err) }()

	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if err := validateRegistration(&req); err != nil {
		return 0, err
	}

	repo := s.repomanager.Users(s.db)

	if err := s.ensureAbsent(ctx, repo.GetUserByLogin, req.Username, ErrUsernameTaken); err != nil {
		return 0, err
	}
	if err := s.ensureAbsent(ctx, repo.GetUserByEmail, req.Email, ErrEmailTaken); err != nil {
		return 0, err
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return 0, common.Internal("Password hashing failed", err)
	}

	user, err := repo.Create(ctx, &models.User{
		UserName:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrDuplicateUsername):
			return 0, ErrUsernameTaken
		case errors.Is(err, users.ErrDuplicateEmail):
			return 0, ErrEmailTaken
		}
		return 0, common.Internal("Failed to create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	s.publish(ctx, events.SubjectUserRegistered, events.UserRegistered{
		UserID:     user.ID,
		Username:   user.UserName,
		Email:      user.Email,
		Role:       string(user.Role),
		OccurredAt: s.now().UTC(),
	})

	if err := s.sendVerification(ctx, user.ID, user.Email); err != nil {
		return 0, err
	}

	return user.ID, nil
}

func (s *UserService) ensureAbsent(ctx context.Context, lookup func(context.Context, string) (*models.User, error), key string, conflict error) error {
	_, err := lookup(ctx, key)
	switch {
	case err == nil:
		return conflict
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return common.Internal("Database error", err)
	}
}

// Login checks credentials and, for verified users, returns a new token pair.
// An unknown username still costs one password verification.
// The unverified check runs after the password check, so it only tells a
// caller who already knows the password.
func (s *UserService) Login(ctx context.Context, userName, password string) (pair *TokenPair, err error) {
	defer func() { telemetry.ObserveOperation("login", err) }()

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.VerifyPassword(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, common.Internal("Database error", err)
	}

	ok, err := s.hasher.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, common.Internal("Hash parsing failed", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return s.issueTokenPair(ctx, user)
}

// RefreshToken rotates refreshToken: the presented token is gone once this
// returns, whether or not a replacement could be issued.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func() { telemetry.ObserveOperation("refresh", err) }()

	userID, err := s.refreshTokens.Redeem(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, common.Internal("Database error", err)
	}

	return s.issueTokenPair(ctx, user)
}

// Logout revokes refreshToken. Unknown tokens succeed.
func (s *UserService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { telemetry.ObserveOperation("logout", err) }()

	return s.refreshTokens.Revoke(ctx, refreshToken)
}

// VerifyEmail consumes code and marks its owner verified.
func (s *UserService) VerifyEmail(ctx context.Context, code string) (err error) {
	defer func() { telemetry.ObserveOperation("verify_email", err) }()

	userID, err := s.verification.Consume(ctx, code)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "email verified", "user_id", userID)
	s.publish(ctx, events.SubjectEmailVerified, events.EmailVerified{
		UserID:     userID,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// ResendVerification sends a new code to an unverified account with that
// email. Callers get MsgVerificationSent whether or not such an account exists.
func (s *UserService) ResendVerification(ctx context.Context, email string) (err error) {
	defer func() { telemetry.ObserveOperation("resend_verification", err) }()

	user, err := s.repomanager.Users(s.db).GetUnverifiedByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.Internal("Database error", err)
	}

	return s.sendVerification(ctx, user.ID, user.Email)
}

// Claims validates an access token for request authentication.
func (s *UserService) Claims(token string) (*auth.Claims, error) {
	return s.issuer.Parse(token)
}

func (s *UserService) sendVerification(ctx context.Context, userID int64, email string) error {
	code, err := s.verification.Issue(ctx, userID)
	if err != nil {
		return err
	}

	body, err := mailer.RenderVerification(s.appURL, code, s.verificationTTL)
	if err != nil {
		return common.Internal("Failed to build email", err)
	}

	if err := s.mailer.Send(ctx, email, mailer.VerificationSubject, body); err != nil {
		return common.Internal("Failed to send email", err)
	}
	return nil
}

func (s *UserService) issueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, expiresIn, err := s.issuer.Issue(user)
	if err != nil {
		return nil, common.Internal("Token generation failed", err)
	}

	refresh, err := s.refreshTokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: expiresIn}, nil
}

// publish is fire-and-forget: a broker outage never fails the caller.
func (s *UserService) publish(ctx context.Context, subject string, payload any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.logger.Warn(ctx, "event publish failed", "subject", subject, "error", err)
	}
}
