package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// SessionContextKey is the router locals key holding the decoded Session for
// requests that passed RequireAccessToken.
const SessionContextKey = "session"

// GetRouterSession pulls the Session a protected route middleware stored in
// the request locals.
func GetRouterSession(ctx router.Context, key string) (Session, error) {
	val := ctx.Locals(key)
	if val == nil {
		return nil, errors.New("no session in request context", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	session, ok := val.(Session)
	if !ok {
		return nil, errors.New("unable to decode request session", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	return session, nil
}

// RequireAccessToken guards a route behind a bearer access token. The decoded
// session is stored under SessionContextKey for downstream handlers.
func RequireAccessToken(auther Authenticator, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = defaultAuthErrorHandler
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := bearerToken(ctx.GetString("Authorization", ""))
			if raw == "" {
				return errorHandler(ctx, ErrTokenMalformed)
			}

			session, err := auther.SessionFromToken(raw)
			if err != nil {
				return errorHandler(ctx, err)
			}

			ctx.Locals(SessionContextKey, session)

			return next(ctx)
		}
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func defaultAuthErrorHandler(ctx router.Context, err error) error {
	var richErr *errors.Error

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if !errors.As(err, &richErr) || richErr.Category != errors.CategoryAuth {
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	return ctx.JSON(router.StatusUnauthorized, map[string]string{
		"message": richErr.Message,
	})
}
