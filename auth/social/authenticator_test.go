package social_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/auth/social"
	"github.com/goliatone/go-fintrack/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct{}

func (testConfig) GetSigningKey() string   { return "social-test-signing-key" }
func (testConfig) GetContextKey() string   { return "user" }
func (testConfig) GetTokenExpiration() int { return 1 }
func (testConfig) GetAuthScheme() string   { return "Bearer" }
func (testConfig) GetIssuer() string       { return "fintrack-test" }
func (testConfig) GetAudience() []string   { return []string{"fintrack-cli"} }

type fakeProvider struct {
	profile     social.Profile
	exchangeErr error
	verifier    string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions([]string{"email"}, opts...)
	q := url.Values{"state": {state}, "code_challenge": {cfg.CodeChallenge}}
	return "https://fake.example/auth?" + q.Encode()
}

func (p *fakeProvider) Exchange(_ context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	p.verifier = social.ApplyExchangeOptions(opts...).CodeVerifier
	return &social.Token{AccessToken: "access-" + code, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (p *fakeProvider) UserInfo(context.Context, *social.Token) (*social.Profile, error) {
	profile := p.profile
	return &profile, nil
}

type activityRecorder struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, e auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	social   *social.Authenticator
	provider *fakeProvider
	users    auth.Users
	accounts *social.Accounts
	auther   *auth.Auther
	activity *activityRecorder
}

func newFixture(t *testing.T, cfg social.Config) *fixture {
	t.Helper()
	db, err := persistence.Open(persistence.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tables := append(auth.Tables(), social.Tables()...)
	require.NoError(t, persistence.Migrate(context.Background(), db, tables...))

	users := auth.NewUsersRepository(db)
	accounts := social.NewAccounts(db)
	auther := auth.NewAuthenticator(auth.NewUserProvider(users), testConfig{})
	provider := &fakeProvider{profile: social.Profile{
		ProviderUserID: "fake-1",
		Provider:       "fake",
		Email:          "ada@example.com",
		EmailVerified:  true,
		Name:           "Ada Lovelace",
		AvatarURL:      "https://example.com/ada.png",
	}}
	activity := &activityRecorder{}

	if cfg.StateSecret == "" {
		cfg.StateSecret = "state-secret"
	}

	return &fixture{
		social: social.NewAuthenticator(accounts, users, auther, cfg,
			social.WithProvider(provider),
			social.WithActivitySink(activity),
		),
		provider: provider,
		users:    users,
		accounts: accounts,
		auther:   auther,
		activity: activity,
	}
}

func (f *fixture) begin(t *testing.T) string {
	t.Helper()
	redirect, err := f.social.BeginAuth(context.Background(), "fake", "/welcome")
	require.NoError(t, err)
	return redirect.State
}

func TestBeginAuth(t *testing.T) {
	f := newFixture(t, social.Config{AllowSignup: true})

	redirect, err := f.social.BeginAuth(context.Background(), "fake", "")
	require.NoError(t, err)
	assert.Equal(t, "fake", redirect.Provider)

	parsed, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, redirect.State, parsed.Query().Get("state"))
	assert.NotEmpty(t, parsed.Query().Get("code_challenge"))

	_, err = f.social.BeginAuth(context.Background(), "github", "")
	assert.ErrorIs(t, err, social.ErrProviderNotFound)

	assert.Equal(t, []string{"fake"}, f.social.Providers())
}

func TestCompleteAuthSignsUpNewUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, social.Config{AllowSignup: true})

	result, err := f.social.CompleteAuth(ctx, "fake", "code-1", f.begin(t))
	require.NoError(t, err)
	assert.True(t, result.IsNewUser)
	assert.Equal(t, "/welcome", result.RedirectURL)
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "Ada Lovelace", result.User.DisplayName)
	assert.True(t, result.User.EmailVerified)
	assert.NotEmpty(t, f.provider.verifier)

	session, err := f.auther.SessionFromToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.String(), session.GetUserID())

	linked, err := f.accounts.FindByUserID(ctx, result.User.ID.String())
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "fake-1", linked[0].ProviderUserID)
	assert.Equal(t, "access-code-1", linked[0].AccessToken)

	require.Len(t, f.activity.events, 1)
	assert.Equal(t, auth.ActivityEventSocialLogin, f.activity.events[0].EventType)

	again, err := f.social.CompleteAuth(ctx, "fake", "code-2", f.begin(t))
	require.NoError(t, err)
	assert.False(t, again.IsNewUser)
	assert.Equal(t, result.User.ID, again.User.ID)

	linked, err = f.accounts.FindByUserID(ctx, result.User.ID.String())
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "access-code-2", linked[0].AccessToken)
}

func TestCompleteAuthLinksExistingUserByEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, social.Config{})

	existing, err := f.users.Create(ctx, &auth.User{Email: "ada@example.com", DisplayName: "Ada"})
	require.NoError(t, err)

	result, err := f.social.CompleteAuth(ctx, "fake", "code", f.begin(t))
	require.NoError(t, err)
	assert.False(t, result.IsNewUser)
	assert.Equal(t, existing.ID, result.User.ID)
}

func TestCompleteAuthPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("signup disabled", func(t *testing.T) {
		f := newFixture(t, social.Config{AllowSignup: false})
		_, err := f.social.CompleteAuth(ctx, "fake", "code", f.begin(t))
		assert.ErrorIs(t, err, social.ErrSignupNotAllowed)
	})

	t.Run("unverified email", func(t *testing.T) {
		f := newFixture(t, social.Config{AllowSignup: true, RequireEmailVerified: true})
		f.provider.profile.EmailVerified = false
		_, err := f.social.CompleteAuth(ctx, "fake", "code", f.begin(t))
		assert.ErrorIs(t, err, social.ErrEmailNotVerified)
	})

	t.Run("suspended user", func(t *testing.T) {
		f := newFixture(t, social.Config{})
		_, err := f.users.Create(ctx, &auth.User{Email: "ada@example.com", Status: auth.UserStatusSuspended})
		require.NoError(t, err)
		_, err = f.social.CompleteAuth(ctx, "fake", "code", f.begin(t))
		assert.ErrorIs(t, err, auth.ErrUserSuspended)
	})
}

func TestCompleteAuthRejectsBadState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, social.Config{AllowSignup: true})

	_, err := f.social.CompleteAuth(ctx, "fake", "code", "garbage")
	assert.ErrorIs(t, err, social.ErrInvalidState)

	other := newFixture(t, social.Config{AllowSignup: true, StateSecret: "different"})
	_, err = f.social.CompleteAuth(ctx, "fake", "code", other.begin(t))
	assert.ErrorIs(t, err, social.ErrInvalidState)

	_, err = f.social.CompleteAuth(ctx, "github", "code", f.begin(t))
	assert.ErrorIs(t, err, social.ErrInvalidState)
}

func TestCompleteAuthRejectsExpiredState(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }

	f := newFixture(t, social.Config{})
	expiring := social.NewAuthenticator(f.accounts, f.users, f.auther, social.Config{},
		social.WithProvider(f.provider),
		social.WithStateManager(social.NewStateManagerFromSecret("s", time.Minute).WithClock(clock)),
	)

	redirect, err := expiring.BeginAuth(ctx, "fake", "")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = expiring.CompleteAuth(ctx, "fake", "code", redirect.State)
	assert.ErrorIs(t, err, social.ErrStateExpired)
}

func TestCompleteAuthWrapsExchangeFailure(t *testing.T) {
	f := newFixture(t, social.Config{AllowSignup: true})
	f.provider.exchangeErr = &social.ProviderError{Provider: "fake", Operation: "exchange", Code: "invalid_grant"}

	_, err := f.social.CompleteAuth(context.Background(), "fake", "code", f.begin(t))
	assert.ErrorIs(t, err, social.ErrTokenExchangeFailed)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "invalid_grant", perr.Code)
}
