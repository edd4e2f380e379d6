package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Auther issues and refreshes JWT session pairs.
type Auther struct {
	provider        IdentityVerifier
	tokenService    TokenService
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	logger          Logger
	activitySink    ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityVerifier, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetIssuer(),
		defLogger{},
	)

	return &Auther{
		provider:        provider,
		tokenService:    tokenService,
		accessTokenTTL:  opts.GetAccessTokenTTL(),
		refreshTokenTTL: opts.GetRefreshTokenTTL(),
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService swaps the token service, mostly for tests.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and mints an access/refresh pair with
// independent TTLs.
func (s *Auther) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": NormalizeEmail(email),
			"error": err.Error(),
		})
		return nil, err
	}

	access, err := s.tokenService.Issue(user.ID.String(), TokenTypeAccess, s.accessTokenTTL)
	if err != nil {
		s.logger.Error("Login failed to issue access token: %v", err)
		return nil, err
	}

	refresh, err := s.tokenService.Issue(user.ID.String(), TokenTypeRefresh, s.refreshTokenTTL)
	if err != nil {
		s.logger.Error("Login failed to issue refresh token: %v", err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"email": user.Email,
	})

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh validates a refresh token and mints a fresh access token. The
// refresh token itself is not rotated or re-issued.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokenService.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		s.logger.Error("Refresh token validation failed: %v", err)
		s.emitAuthEvent(ctx, ActivityEventTokenRefreshFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"error": err.Error(),
		})
		return "", invalidRefreshError(err)
	}

	// A well-signed token is not enough. The subject must still exist so a
	// deleted account cannot keep minting access tokens.
	user, err := s.provider.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Error("Refresh rejected for unknown subject: %s", claims.UserID())
			s.emitAuthEvent(ctx, ActivityEventTokenRefreshFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"subject": claims.UserID(),
				"error":   err.Error(),
			})
			return "", invalidRefreshError(err)
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to resolve refresh subject")
	}

	access, err := s.tokenService.Issue(user.ID.String(), TokenTypeAccess, s.accessTokenTTL)
	if err != nil {
		s.logger.Error("Refresh failed to issue access token: %v", err)
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshSuccess, ActorRef{ID: claims.UserID(), Type: "user"}, claims.UserID(), nil)

	return access, nil
}

// SessionFromToken decodes a validated access token into a Session.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw, TokenTypeAccess)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed: %v", err)
		return nil, err
	}

	return sessionFromClaims(claims), nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}

// invalidRefreshError keeps the public refresh failure uniform while
// preserving the underlying cause for logs.
func invalidRefreshError(err error) error {
	return errors.Wrap(err, ErrInvalidRefreshToken.Category, ErrInvalidRefreshToken.Message).
		WithTextCode(ErrInvalidRefreshToken.TextCode).
		WithCode(errors.CodeBadRequest)
}

var _ Authenticator = (*Auther)(nil)
