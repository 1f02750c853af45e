package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/cryptox"
	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/dmitrijs2005/quickmart/internal/server/auth"
	"github.com/dmitrijs2005/quickmart/internal/server/blobstore"
	"github.com/dmitrijs2005/quickmart/internal/server/events"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the tests fast
var testArgon2Params = cryptox.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

var testAuthConfig = AuthConfig{
	AccessTokenTTL:  time.Hour,
	RefreshTokenTTL: 2 * time.Hour,
	OtpTTL:          600 * time.Second,
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	subject   string
	body      string
	recipient string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, subject, body, recipient string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{subject: subject, body: body, recipient: recipient})
	return nil
}

func (n *fakeNotifier) Last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no email sent")
	return n.sent[len(n.sent)-1]
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.UserRegistered
	err    error
}

func (p *fakePublisher) PublishUserRegistered(_ context.Context, ev events.UserRegistered) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	repos     repomanager.RepositoryManager
	clock     *testClock
	codec     *auth.TokenCodec
	notifier  *fakeNotifier
	publisher *fakePublisher
	store     *blobstore.MemoryStore
	auth      *AuthService
	users     *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repos:     repomanager.NewMemoryRepositoryManager(),
		clock:     &testClock{t: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		store:     blobstore.NewMemoryStore(),
	}
	f.codec = auth.NewTokenCodec([]byte("test-secret")).WithClock(f.clock.Now)
	hasher := cryptox.NewPasswordHasher(testArgon2Params)

	f.auth = NewAuthService(f.repos, hasher, f.codec, f.notifier, f.publisher, testAuthConfig, logging.NewNopLogger())
	f.auth.now = f.clock.Now

	f.users = NewUserService(f.repos, hasher, f.store, logging.NewNopLogger())
	f.users.now = f.clock.Now
	return f
}

func (f *fixture) register(t *testing.T, username, email, password string) *TokenPair {
	t.Helper()
	pair, err := f.auth.Register(context.Background(), "Test "+username, username, email, password, password)
	require.NoError(t, err)
	return pair
}

func (f *fixture) userID(t *testing.T, username string) string {
	t.Helper()
	u, err := f.repos.Users().GetByUsername(context.Background(), username)
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.repos.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

var errBoom = errors.New("boom")
