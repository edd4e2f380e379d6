package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ConfirmEmailMessage struct {
	Token      string `json:"token" example:"1Xp2z4bJq0uJb0yriF2QZw" doc:"Email verification token from the confirmation link."`
	OnResponse func(resp *ConfirmEmailResponse)
}

func (e ConfirmEmailMessage) Type() string { return "accounts.confirm_email" }

type ConfirmEmailResponse struct {
	User *User
}

type ConfirmEmailHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewConfirmEmailHandler creates a handler with sane defaults.
func NewConfirmEmailHandler(repo RepositoryManager) *ConfirmEmailHandler {
	return &ConfirmEmailHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit confirmation events.
func (h *ConfirmEmailHandler) WithActivitySink(sink ActivitySink) *ConfirmEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ConfirmEmailHandler) WithLogger(logger Logger) *ConfirmEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source, mostly for tests.
func (h *ConfirmEmailHandler) WithClock(now func() time.Time) *ConfirmEmailHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, event ConfirmEmailMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.VerificationTokens().GetByValueTx(ctx, tx, event.Token)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification token")
		}

		if token.ExpiredAt(h.now()) {
			return ErrTokenExpired
		}

		if token.UserID == nil {
			return goerrors.New("verification token is not associated with a user", goerrors.CategoryInternal)
		}

		user, err = h.repo.Users().GetByIDTx(ctx, tx, token.UserID.String())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for confirmation")
		}

		// The verified check runs before consumption so a double confirm
		// reports already verified instead of burning a second token.
		if err := EnsureTransition(user.VerificationStatus(), StateVerified); err != nil {
			return err
		}

		if token.Consumed() {
			return ErrInvalidToken
		}

		if user, err = h.repo.Users().MarkVerifiedTx(ctx, tx, user.ID); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrAlreadyVerified
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark user verified")
		}

		if _, err := h.repo.VerificationTokens().ConsumeTx(ctx, tx, token.ID, h.now()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm email")
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&ConfirmEmailResponse{User: user})
	}

	return nil
}

func (h *ConfirmEmailHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventEmailConfirmed,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		FromState:  StateUnverified,
		ToState:    StateVerified,
		Metadata:   map[string]any{"email": user.Email},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during email confirmation: %v", err)
	}
}
