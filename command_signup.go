package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Email     string `json:"email" example:"pepe.rone@example.com" doc:"Account email, used as the login key."`
	Password  string `json:"password" example:"some_secret_word" doc:"Cleartext password, hashed before storage."`
	Phone     string `json:"phone,omitempty" example:"+14155552671" doc:"Optional phone number in E.164 form."`
	UseHashid bool
	OnResponse func(resp *SignupResponse)
}

func (e SignupMessage) Type() string { return "accounts.signup" }

type SignupResponse struct {
	User  *User
	Token *VerificationToken
}

type SignupHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	config   Config
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewSignupHandler creates a handler with sane defaults.
func NewSignupHandler(repo RepositoryManager, mailer Mailer, config Config) *SignupHandler {
	return &SignupHandler{
		repo:     repo,
		mailer:   mailer,
		config:   config,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit signup events.
func (h *SignupHandler) WithActivitySink(sink ActivitySink) *SignupHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source, mostly for tests.
func (h *SignupHandler) WithClock(now func() time.Time) *SignupHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	user := &User{}
	token := &VerificationToken{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrDuplicateEmail
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.EmailValidated = false
		if event.UseHashid {
			if id, err := hashid.NewUUID(NormalizeEmail(event.Email)); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if token, err = h.issueTokenTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		h.recordActivity(ctx, ActivityEventSignupFailure, event.Email, "", err)

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	// The records are durably committed before we touch the network. A failed
	// send leaves the account recoverable through resend.
	if err := sendVerificationEmail(ctx, h.mailer, h.config, user.Email, token.Value); err != nil {
		h.recordActivity(ctx, ActivityEventSignupFailure, user.Email, user.ID.String(), err)
		return wrapDeliveryError(err)
	}

	h.recordActivity(ctx, ActivityEventSignupSuccess, user.Email, user.ID.String(), nil)

	if event.OnResponse != nil {
		event.OnResponse(&SignupResponse{User: user, Token: token})
	}

	return nil
}

func (h *SignupHandler) issueTokenTx(ctx context.Context, tx bun.Tx, user *User) (*VerificationToken, error) {
	value, err := NewVerificationTokenValue()
	if err != nil {
		return nil, err
	}

	now := h.now()
	expires := now.Add(h.config.GetTokenExpiry())

	token := &VerificationToken{
		Value:     value,
		UserID:    &user.ID,
		IssuedAt:  &now,
		ExpiresAt: &expires,
	}

	if token, err = h.repo.VerificationTokens().CreateTx(ctx, tx, token); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create verification token")
	}

	return token, nil
}

func (h *SignupHandler) recordActivity(ctx context.Context, eventType ActivityEventType, email, userID string, opErr error) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      ActorRef{Type: "anonymous"},
		UserID:     userID,
		Metadata:   map[string]any{"email": email},
		OccurredAt: time.Now(),
	}

	if opErr != nil {
		event.Metadata["error"] = opErr.Error()
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during signup: %v", err)
	}
}

func wrapDeliveryError(err error) error {
	return goerrors.Wrap(err, ErrEmailDeliveryFailed.Category, "failed to send verification email: "+err.Error()).
		WithTextCode(ErrEmailDeliveryFailed.TextCode).
		WithCode(goerrors.CodeBadRequest)
}
