package auth_test

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/persistence"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (auth.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (auth.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string, _ ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

type testConfig struct{}

func (testConfig) GetSigningKey() string   { return "test-signing-key" }
func (testConfig) GetContextKey() string   { return "user" }
func (testConfig) GetTokenExpiration() int { return 24 }
func (testConfig) GetAuthScheme() string   { return "Bearer" }
func (testConfig) GetIssuer() string       { return "fintrack-test" }
func (testConfig) GetAudience() []string   { return []string{"fintrack-cli"} }

type sinkRecorder struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *sinkRecorder) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *sinkRecorder) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := persistence.Open(persistence.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.Migrate(context.Background(), db, auth.Tables()...))
	return db
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return hash
}
