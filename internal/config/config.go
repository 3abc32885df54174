package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Env         string `env:"ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	JWTSecret        string        `env:"JWT_SECRET,required,notEmpty"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`

	// BaseURL is the public address of this API; blob download URLs are built on it.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	// FrontendURL is where password reset links point.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	MinPasswordLength   int           `env:"MIN_PASSWORD_LENGTH" envDefault:"6"`
	PasswordResetExpiry time.Duration `env:"PASSWORD_RESET_EXPIRY" envDefault:"1h"`
	MaxUploadBytes      int64         `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`
	// MaxRequestBytes caps a JSON request body, base64 attachments included.
	MaxRequestBytes int64 `env:"MAX_REQUEST_BYTES" envDefault:"104857600"`
	// SessionTimeout bounds one resolution of a session principal.
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"10s"`

	Redis RedisConfig `envPrefix:"REDIS_"`
	SMTP  SMTPConfig  `envPrefix:"SMTP_"`
}

type RedisConfig struct {
	// URL enables cross-replica fan-out of credential events when set.
	URL     string `env:"URL"`
	Channel string `env:"CHANNEL" envDefault:"medportal:credentials"`
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.sanitize()
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) sanitize() {
	if c.JWTAccessExpiry <= 0 {
		c.JWTAccessExpiry = 15 * time.Minute
	}
	if c.JWTRefreshExpiry <= 0 {
		c.JWTRefreshExpiry = 168 * time.Hour
	}
	if c.MinPasswordLength < 6 {
		c.MinPasswordLength = 6
	}
	if c.PasswordResetExpiry <= 0 {
		c.PasswordResetExpiry = time.Hour
	}
	if c.SessionTimeout < 0 {
		c.SessionTimeout = 0
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 25 << 20
	}
	// one attachment of the maximum size must fit once base64 encoded
	if floor := c.MaxUploadBytes/3*4 + 64<<10; c.MaxRequestBytes < floor {
		c.MaxRequestBytes = floor
	}
}
