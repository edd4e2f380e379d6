package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ResendVerificationMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Email of the account awaiting verification."`
	OnResponse func(resp *ResendVerificationResponse)
}

func (e ResendVerificationMessage) Type() string { return "accounts.resend_verification" }

type ResendVerificationResponse struct {
	User  *User
	Token *VerificationToken
}

type ResendVerificationHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	config   Config
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewResendVerificationHandler creates a handler with sane defaults.
func NewResendVerificationHandler(repo RepositoryManager, mailer Mailer, config Config) *ResendVerificationHandler {
	return &ResendVerificationHandler{
		repo:     repo,
		mailer:   mailer,
		config:   config,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit resend events.
func (h *ResendVerificationHandler) WithActivitySink(sink ActivitySink) *ResendVerificationHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResendVerificationHandler) WithLogger(logger Logger) *ResendVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source, mostly for tests.
func (h *ResendVerificationHandler) WithClock(now func() time.Time) *ResendVerificationHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	if NormalizeEmail(event.Email) == "" {
		return ErrMissingEmail
	}

	user := &User{}
	token := &VerificationToken{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for resend")
		}

		if user.EmailValidated {
			return ErrAlreadyVerified
		}

		// Replace, never accumulate: the prior token dies before the new one
		// is born so at most one value can confirm this account.
		if err := h.repo.VerificationTokens().InvalidateForUserTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate outstanding tokens")
		}

		value, err := NewVerificationTokenValue()
		if err != nil {
			return err
		}

		now := h.now()
		expires := now.Add(h.config.GetTokenExpiry())

		token = &VerificationToken{
			Value:     value,
			UserID:    &user.ID,
			IssuedAt:  &now,
			ExpiresAt: &expires,
		}

		if token, err = h.repo.VerificationTokens().CreateTx(ctx, tx, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resend verification email")
	}

	if err := sendVerificationEmail(ctx, h.mailer, h.config, user.Email, token.Value); err != nil {
		return wrapDeliveryError(err)
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&ResendVerificationResponse{User: user, Token: token})
	}

	return nil
}

func (h *ResendVerificationHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventVerificationResent,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		Metadata:   map[string]any{"email": user.Email},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during verification resend: %v", err)
	}
}
