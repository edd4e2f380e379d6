package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// UserStore is the minimal store surface the provider needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error)
}

// UserProvider resolves login credentials against the user store.
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare the password, and check the
// account is verified. Unknown email, wrong password, and an unverified
// account all collapse into the same credential error so responses never
// reveal whether the account exists or has confirmed its email.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to compare password hash")
	}

	if !user.EmailValidated {
		u.logger.Debug("login attempt on unverified account: %s", user.ID.String())
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// FindByEmail retrieves a user by email without credential checks.
func (u *UserProvider) FindByEmail(ctx context.Context, email string) (*User, error) {
	return u.store.GetByEmail(ctx, email)
}

// FindByID retrieves a user by id without credential checks.
func (u *UserProvider) FindByID(ctx context.Context, id string) (*User, error) {
	return u.store.GetByID(ctx, id)
}

var _ IdentityVerifier = (*UserProvider)(nil)
