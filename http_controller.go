package accounts

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the account endpoints as a JSON API.
type HTTPController struct {
	signup  *SignupHandler
	confirm *ConfirmEmailHandler
	resend  *ResendVerificationHandler
	auther  Authenticator
	logger  Logger
}

// HTTPControllerOption mutates the controller during construction.
type HTTPControllerOption func(*HTTPController) *HTTPController

// NewHTTPController wires the account command handlers and the session
// authenticator behind HTTP routes.
func NewHTTPController(repo RepositoryManager, mailer Mailer, cfg Config, auther Authenticator, opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		signup:  NewSignupHandler(repo, mailer, cfg),
		confirm: NewConfirmEmailHandler(repo),
		resend:  NewResendVerificationHandler(repo, mailer, cfg),
		auther:  auther,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.auther == nil {
		panic("Missing Authenticator in accounts controller...")
	}

	return c
}

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if logger != nil {
			c.logger = logger
		}
		return c
	}
}

// WithControllerActivitySink propagates an activity sink to every handler.
func WithControllerActivitySink(sink ActivitySink) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.signup.WithActivitySink(sink)
		c.confirm.WithActivitySink(sink)
		c.resend.WithActivitySink(sink)
		return c
	}
}

// RegisterRoutes mounts the account endpoints on the given group. The group
// is expected to carry the /api/auth prefix.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/signup/", c.Signup)
	group.Get("/confirm-email/:token/", c.ConfirmEmail)
	group.Get("/resend-verification-email/", c.ResendVerification)
	group.Post("/login/", c.Login)
	group.Post("/token/refresh/", c.RefreshToken)
	group.Get("/protected/", c.Protected, RequireAccessToken(c.auther, nil))
}

// SignupPayload is the JSON body of the signup endpoint.
type SignupPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Phone, validation.By(validatePhoneNumber)),
	)
}

func validatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return stderrors.New("must be a phone number in international format")
	}

	if !phonenumbers.IsValidNumber(num) {
		return stderrors.New("must be a valid phone number")
	}

	return nil
}

// Signup registers a new account and dispatches the verification email.
func (c *HTTPController) Signup(ctx router.Context) error {
	payload := new(SignupPayload)

	if err := ctx.Bind(payload); err != nil {
		c.logger.Error("signup parse payload: %v", err)
		return c.jsonMessage(ctx, router.StatusBadRequest, "Unable to parse request body")
	}

	if err := payload.Validate(); err != nil {
		c.logger.Error("signup validate payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"message":    "Invalid signup payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	msg := SignupMessage{
		Email:    payload.Email,
		Password: payload.Password,
		Phone:    payload.Phone,
	}

	if err := c.signup.Execute(ctx.Context(), msg); err != nil {
		return c.handleError(ctx, err)
	}

	return c.jsonMessage(ctx, router.StatusCreated, "User created successfully")
}

// ConfirmEmail consumes a verification token from the emailed link.
func (c *HTTPController) ConfirmEmail(ctx router.Context) error {
	tokenValue := ctx.Param("token")
	if tokenValue == "" {
		return c.handleError(ctx, ErrInvalidToken)
	}

	msg := ConfirmEmailMessage{Token: tokenValue}

	if err := c.confirm.Execute(ctx.Context(), msg); err != nil {
		return c.handleError(ctx, err)
	}

	return c.jsonMessage(ctx, router.StatusOK, "Email verified successfully!")
}

// ResendVerification invalidates outstanding tokens and emails a fresh one.
func (c *HTTPController) ResendVerification(ctx router.Context) error {
	msg := ResendVerificationMessage{Email: ctx.Query("email", "")}

	if err := c.resend.Execute(ctx.Context(), msg); err != nil {
		return c.handleError(ctx, err)
	}

	return c.jsonMessage(ctx, router.StatusOK, "Verification email sent")
}

// LoginPayload is the JSON body of the login endpoint.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login checks credentials and returns an access/refresh token pair. Every
// credential failure maps to the same unauthorized response so callers can
// not probe which emails exist.
func (c *HTTPController) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		c.logger.Error("login parse payload: %v", err)
		return c.jsonMessage(ctx, router.StatusBadRequest, "Unable to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return c.jsonMessage(ctx, ErrInvalidCredentials.Code, ErrInvalidCredentials.Message)
	}

	pair, err := c.auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		c.logger.Error("login error: %v", err)
		return c.jsonMessage(ctx, ErrInvalidCredentials.Code, ErrInvalidCredentials.Message)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "Login successful",
		"access":  pair.Access,
		"refresh": pair.Refresh,
	})
}

// RefreshPayload is the JSON body of the token refresh endpoint.
type RefreshPayload struct {
	Refresh string `json:"refresh"`
}

// Validate will run validation rules
func (r RefreshPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Refresh, validation.Required),
	)
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (c *HTTPController) RefreshToken(ctx router.Context) error {
	payload := new(RefreshPayload)

	if err := ctx.Bind(payload); err != nil {
		c.logger.Error("refresh parse payload: %v", err)
		return c.jsonMessage(ctx, ErrInvalidRefreshToken.Code, ErrInvalidRefreshToken.Message)
	}

	if err := payload.Validate(); err != nil {
		return c.jsonMessage(ctx, ErrInvalidRefreshToken.Code, ErrInvalidRefreshToken.Message)
	}

	access, err := c.auther.Refresh(ctx.Context(), payload.Refresh)
	if err != nil {
		c.logger.Error("refresh error: %v", err)
		return c.jsonMessage(ctx, ErrInvalidRefreshToken.Code, ErrInvalidRefreshToken.Message)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"access": access,
	})
}

// Protected is a sample endpoint behind the access token middleware.
func (c *HTTPController) Protected(ctx router.Context) error {
	return c.jsonMessage(ctx, router.StatusOK, "You have accessed a protected route!")
}

func (c *HTTPController) jsonMessage(ctx router.Context, status int, message string) error {
	return ctx.JSON(status, map[string]string{
		"message": message,
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verr validation.Errors
	if stderrors.As(err, &verr) {
		for field, fieldErr := range verr {
			out[field] = fieldErr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

// handleError maps rich errors onto the status code and message the JSON API
// promises. Unknown errors collapse into a generic 500.
func (c *HTTPController) handleError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = errors.CodeInternal
	}

	if status >= 500 {
		c.logger.Error("request failed: %v", err)
		return c.jsonMessage(ctx, status, "An unexpected server error occurred")
	}

	c.logger.Debug("request rejected: %v", err)
	return c.jsonMessage(ctx, status, richErr.Message)
}
