package services

import (
	"context"
	"database/sql"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	verificationrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/verificationtokens"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore backs all fake repositories. The *Err fields inject failures.
type memStore struct {
	mu sync.Mutex

	users      map[int64]*models.User
	nextUserID int64

	refresh map[string]*models.RefreshToken

	verification map[int64]*models.VerificationToken
	nextTokenID  int64

	createUserErr      error
	lookupErr          error
	createRefreshErr   error
	deleteRefreshErr   error
	findRefreshErr     error
	upsertVerifyErr    error
	deleteVerifyErr    error
	markVerifiedErr    error
	staleRefreshDelete bool // Delete reports no row removed, as if a concurrent call won
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[int64]*models.User{},
		refresh:      map[string]*models.RefreshToken{},
		verification: map[int64]*models.VerificationToken{},
	}
}

func (s *memStore) Users(dbx.DBTX) usersrepo.Repository { return &fakeUsersRepo{s} }
func (s *memStore) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return &fakeRefreshRepo{s}
}
func (s *memStore) VerificationTokens(dbx.DBTX) verificationrepo.Repository {
	return &fakeVerificationRepo{s}
}
func (s *memStore) RunMigrations(context.Context, *sql.DB) error { return nil }

func (s *memStore) userByName(name string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.UserName == name {
			c := *u
			return &c
		}
	}
	return nil
}

func (s *memStore) codesFor(userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, vt := range s.verification {
		if vt.UserID == userID {
			out = append(out, vt.Token)
		}
	}
	return out
}

func (s *memStore) hasRefresh(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refresh[token]
	return ok
}

type fakeUsersRepo struct{ s *memStore }

func (r *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createUserErr != nil {
		return nil, r.s.createUserErr
	}
	for _, existing := range r.s.users {
		if existing.UserName == u.UserName {
			return nil, usersrepo.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return nil, usersrepo.ErrDuplicateEmail
		}
	}
	r.s.nextUserID++
	c := *u
	c.ID = r.s.nextUserID
	c.EmailVerified = false
	r.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.lookupErr != nil {
		return nil, r.s.lookupErr
	}
	for _, u := range r.s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.UserName == userName })
}

func (r *fakeUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUsersRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUsersRepo) GetUnverifiedByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email && !u.EmailVerified })
}

func (r *fakeUsersRepo) MarkEmailVerified(ctx context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.markVerifiedErr != nil {
		return r.s.markVerifiedErr
	}
	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.EmailVerified = true
	return nil
}

type fakeRefreshRepo struct{ s *memStore }

func (r *fakeRefreshRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createRefreshErr != nil {
		return r.s.createRefreshErr
	}
	if _, ok := r.s.refresh[token]; ok {
		return common.ErrorAlreadyExists
	}
	r.s.refresh[token] = &models.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (r *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.findRefreshErr != nil {
		return nil, r.s.findRefreshErr
	}
	rt, ok := r.s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *rt
	return &c, nil
}

func (r *fakeRefreshRepo) Delete(ctx context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.deleteRefreshErr != nil {
		return false, r.s.deleteRefreshErr
	}
	if r.s.staleRefreshDelete {
		delete(r.s.refresh, token)
		return false, nil
	}
	_, ok := r.s.refresh[token]
	delete(r.s.refresh, token)
	return ok, nil
}

type fakeVerificationRepo struct{ s *memStore }

func (r *fakeVerificationRepo) Upsert(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.upsertVerifyErr != nil {
		return r.s.upsertVerifyErr
	}
	var own *models.VerificationToken
	for _, vt := range r.s.verification {
		if vt.Token == token && vt.UserID != userID {
			return common.ErrorAlreadyExists
		}
		if vt.UserID == userID {
			own = vt
		}
	}
	if own != nil {
		own.Token, own.ExpiresAt = token, expiresAt
		return nil
	}
	r.s.nextTokenID++
	r.s.verification[r.s.nextTokenID] = &models.VerificationToken{
		ID: r.s.nextTokenID, UserID: userID, Token: token, ExpiresAt: expiresAt,
	}
	return nil
}

func (r *fakeVerificationRepo) Find(ctx context.Context, token string) (*models.VerificationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, vt := range r.s.verification {
		if vt.Token == token {
			c := *vt
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeVerificationRepo) Delete(ctx context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.deleteVerifyErr != nil {
		return false, r.s.deleteVerifyErr
	}
	for id, vt := range r.s.verification {
		if vt.Token == token {
			delete(r.s.verification, id)
			return true, nil
		}
	}
	return false, nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

var codeRe = regexp.MustCompile(`<strong>(\d{6})</strong>`)

// lastCode extracts the verification code from the most recent email.
func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email sent")
	match := codeRe.FindStringSubmatch(m.sent[len(m.sent)-1].body)
	require.Len(t, match, 2, "no code in email body")
	return match[1]
}

type published struct {
	subject string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject, payload})
	return p.err
}

func (p *fakePublisher) Close() {}

var testHasher = argon2Hasher{params: cryptox.Argon2Params{Memory: 64, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	return cfg
}

type testEnv struct {
	svc       *UserService
	store     *memStore
	clock     *fakeClock
	mail      *fakeMailer
	publisher *fakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     newMemStore(),
		clock:     newFakeClock(),
		mail:      &fakeMailer{},
		publisher: &fakePublisher{},
	}
	env.svc = NewUserService(newTestDB(t), env.store, testConfig(), env.mail,
		WithClock(env.clock.Now),
		WithPasswordHasher(testHasher),
		WithEvents(env.publisher),
	)
	return env
}

func validRegistration(name string) RegisterRequest {
	return RegisterRequest{
		Username:        name,
		Email:           name + "@example.com",
		Password:        "longenough1",
		ConfirmPassword: "longenough1",
		Role:            models.RoleUser,
	}
}

// registerVerified registers name and confirms the address.
func (e *testEnv) registerVerified(t *testing.T, name string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := e.svc.Register(ctx, validRegistration(name))
	require.NoError(t, err)
	require.NoError(t, e.svc.VerifyEmail(ctx, e.mail.lastCode(t)))
	return id
}
