package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema            string        `mapstructure:"DB_SCHEMA"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	JWTSigningKey       string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer           string        `mapstructure:"JWT_ISSUER"`
	TOTPIssuer          string        `mapstructure:"TOTP_ISSUER"`
	ChallengeTTL        time.Duration `mapstructure:"CHALLENGE_TTL"`
	PublicBaseURL       string        `mapstructure:"PUBLIC_BASE_URL"`
	SupportEmail        string        `mapstructure:"SUPPORT_EMAIL"`
	SMTPHost            string        `mapstructure:"SMTP_HOST"`
	SMTPPort            int           `mapstructure:"SMTP_PORT"`
	SMTPUsername        string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword        string        `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom            string        `mapstructure:"SMTP_FROM"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	TrustedProxies      []string      `mapstructure:"TRUSTED_PROXIES"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	LoginRateLimitRPS   float64       `mapstructure:"LOGIN_RATE_LIMIT_RPS"`
	LoginRateLimitBurst int           `mapstructure:"LOGIN_RATE_LIMIT_BURST"`
	TLSEnabled          bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile         string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile          string        `mapstructure:"TLS_KEY_FILE"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"REDIS_URL", "JWT_SIGNING_KEY", "JWT_ISSUER", "TOTP_ISSUER", "CHALLENGE_TTL",
	"PUBLIC_BASE_URL", "SUPPORT_EMAIL",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"CORS_ORIGINS", "TRUSTED_PROXIES", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"LOGIN_RATE_LIMIT_RPS", "LOGIN_RATE_LIMIT_BURST",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("JWT_ISSUER", "wardcare")
	v.SetDefault("TOTP_ISSUER", "FutureMed")
	v.SetDefault("CHALLENGE_TTL", "5m")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("SUPPORT_EMAIL", "support@futuremed.local")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@futuremed.local")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LOGIN_RATE_LIMIT_RPS", 1)
	v.SetDefault("LOGIN_RATE_LIMIT_BURST", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.TrustedProxies == nil {
		if proxies := v.GetString("TRUSTED_PROXIES"); proxies != "" {
			cfg.TrustedProxies = strings.Split(proxies, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey decodes JWT_SIGNING_KEY. It returns nil when the key is unset.
func (c *Config) SigningKey() ([]byte, error) {
	if c.JWTSigningKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.JWTSigningKey)
	if err != nil {
		return nil, fmt.Errorf("JWT_SIGNING_KEY is not valid hex: %w", err)
	}
	return key, nil
}

// TrustedProxyNets parses TRUSTED_PROXIES. Only requests arriving from these
// ranges may set the client address through X-Forwarded-For.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		_, ipNet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %q is not a CIDR range", raw)
		}
		nets = append(nets, ipNet)
	}
	return nets, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTSigningKey != "" {
		key, err := c.SigningKey()
		if err != nil {
			return err
		}
		if len(key) < 32 {
			return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes (64 hex chars), got %d bytes", len(key))
		}
	}
	if c.IsProduction() {
		if c.JWTSigningKey == "" {
			return fmt.Errorf("JWT_SIGNING_KEY is required in production")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in production")
		}
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		return err
	}
	if c.ChallengeTTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL must be positive, got %s", c.ChallengeTTL)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
