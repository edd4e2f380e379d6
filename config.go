package accounts

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig loads service options from environment variables. TOKEN_EXPIRY is
// expressed in seconds to match the verification link lifetime contract.
type EnvConfig struct {
	SecretKey           string        `env:"SECRET_KEY,required"`
	Issuer              string        `env:"TOKEN_ISSUER" envDefault:"accounts"`
	TokenExpirySeconds  int           `env:"TOKEN_EXPIRY" envDefault:"3600"`
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"24h"`
	VerificationBaseURL string        `env:"VERIFICATION_BASE_URL" envDefault:"http://localhost:8000"`
	DatabaseDSN         string        `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	EmailHost           string        `env:"EMAIL_HOST" envDefault:""`
	EmailHostUser       string        `env:"EMAIL_HOST_USER" envDefault:""`
	EmailHostPassword   string        `env:"EMAIL_HOST_PASSWORD" envDefault:""`
	EmailFrom           string        `env:"DEFAULT_FROM_EMAIL" envDefault:"no-reply@localhost"`
	ServerAddress       string        `env:"SERVER_ADDRESS" envDefault:":8000"`
}

// NewEnvConfig loads configuration from environment variables.
func NewEnvConfig() (*EnvConfig, error) {
	cfg := EnvConfig{}
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to parse environment config").
			WithCode(errors.CodeInternal)
	}

	return &cfg, nil
}

func (c *EnvConfig) GetSigningKey() string {
	return c.SecretKey
}

func (c *EnvConfig) GetIssuer() string {
	return c.Issuer
}

// GetTokenExpiry returns the verification token lifetime.
func (c *EnvConfig) GetTokenExpiry() time.Duration {
	if c.TokenExpirySeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.TokenExpirySeconds) * time.Second
}

func (c *EnvConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return 15 * time.Minute
	}
	return c.AccessTokenTTL
}

func (c *EnvConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return 24 * time.Hour
	}
	return c.RefreshTokenTTL
}

func (c *EnvConfig) GetVerificationBaseURL() string {
	return c.VerificationBaseURL
}

var _ Config = (*EnvConfig)(nil)
