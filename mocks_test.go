package accounts_test

import (
	"context"
	"database/sql"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	accounts "github.com/mirelabs/go-accounts"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockRepositoryManager implements accounts.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

func (m *MockRepositoryManager) Users() accounts.Users {
	args := m.Called()
	return args.Get(0).(accounts.Users)
}

func (m *MockRepositoryManager) VerificationTokens() accounts.VerificationTokens {
	args := m.Called()
	return args.Get(0).(accounts.VerificationTokens)
}

// MockUsers mocks the subset of accounts.Users the handlers touch. The
// embedded interface satisfies the rest; unexpected calls panic.
type MockUsers struct {
	mock.Mock
	accounts.Users
}

func (m *MockUsers) Register(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, user)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, user)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	args := m.Called(ctx, tx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	args := m.Called(ctx, tx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) MarkVerified(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*accounts.User, error) {
	args := m.Called(ctx, tx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func userArg(v any) *accounts.User {
	if v == nil {
		return nil
	}
	return v.(*accounts.User)
}

// MockVerificationTokens mocks the subset of accounts.VerificationTokens the
// handlers touch.
type MockVerificationTokens struct {
	mock.Mock
	accounts.VerificationTokens
}

func (m *MockVerificationTokens) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.VerificationToken, criteria ...repository.InsertCriteria) (*accounts.VerificationToken, error) {
	args := m.Called(ctx, tx, record)
	return tokenArg(args.Get(0)), args.Error(1)
}

func (m *MockVerificationTokens) GetByValue(ctx context.Context, value string) (*accounts.VerificationToken, error) {
	args := m.Called(ctx, value)
	return tokenArg(args.Get(0)), args.Error(1)
}

func (m *MockVerificationTokens) GetByValueTx(ctx context.Context, tx bun.IDB, value string) (*accounts.VerificationToken, error) {
	args := m.Called(ctx, tx, value)
	return tokenArg(args.Get(0)), args.Error(1)
}

func (m *MockVerificationTokens) Consume(ctx context.Context, id uuid.UUID, at time.Time) (*accounts.VerificationToken, error) {
	args := m.Called(ctx, id, at)
	return tokenArg(args.Get(0)), args.Error(1)
}

func (m *MockVerificationTokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (*accounts.VerificationToken, error) {
	args := m.Called(ctx, tx, id, at)
	return tokenArg(args.Get(0)), args.Error(1)
}

func (m *MockVerificationTokens) InvalidateForUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockVerificationTokens) InvalidateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

func tokenArg(v any) *accounts.VerificationToken {
	if v == nil {
		return nil
	}
	return v.(*accounts.VerificationToken)
}

// MockActivitySink implements accounts.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event accounts.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockMailer implements accounts.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// MockAuthenticator implements accounts.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*accounts.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.TokenPair), args.Error(1)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (accounts.Session, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(accounts.Session), args.Error(1)
}

// MockIdentityVerifier implements accounts.IdentityVerifier
type MockIdentityVerifier struct {
	mock.Mock
}

func (m *MockIdentityVerifier) VerifyIdentity(ctx context.Context, email, password string) (*accounts.User, error) {
	args := m.Called(ctx, email, password)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockIdentityVerifier) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockIdentityVerifier) FindByID(ctx context.Context, id string) (*accounts.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

// testConfig implements accounts.Config with deterministic values.
type testConfig struct {
	signingKey      string
	issuer          string
	tokenExpiry     time.Duration
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	baseURL         string
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey:      "test-signing-key",
		issuer:          "accounts-test",
		tokenExpiry:     time.Hour,
		accessTokenTTL:  15 * time.Minute,
		refreshTokenTTL: 24 * time.Hour,
		baseURL:         "http://localhost:8000",
	}
}

func (c testConfig) GetSigningKey() string             { return c.signingKey }
func (c testConfig) GetIssuer() string                 { return c.issuer }
func (c testConfig) GetTokenExpiry() time.Duration     { return c.tokenExpiry }
func (c testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTokenTTL }
func (c testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTokenTTL }
func (c testConfig) GetVerificationBaseURL() string    { return c.baseURL }
