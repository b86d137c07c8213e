package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config/config.yaml"
	configPathEnv     = "SECUREAUTH_CONFIG"
	appEnvVar         = "APP_ENV"
	legacyEnvVar      = "NODE_ENV"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
	ProviderLog      = "log"
)

type ServerConfig struct {
	Port            int                 `yaml:"port" env:"PORT"`
	Environment     string              `yaml:"environment" env:"APP_ENV"`
	AllowedOrigins  map[string][]string `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration       `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url" env:"DATABASE_URL"`
	Driver         string        `yaml:"driver" env:"DATABASE_DRIVER"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	InitAttempts   int           `yaml:"init_attempts"`
	InitRetryDelay time.Duration `yaml:"init_retry_delay"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL         time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	OTPTTL           time.Duration `yaml:"otp_ttl" env:"OTP_TTL"`
	BcryptCost       int           `yaml:"bcrypt_cost"`
	StrictTokenScope bool          `yaml:"strict_token_scope" env:"STRICT_TOKEN_SCOPE"`
}

type EmailConfig struct {
	Provider       string `yaml:"provider" env:"EMAIL_PROVIDER"`
	FromEmail      string `yaml:"from_email" env:"SENDER_EMAIL"`
	SMTPHost       string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser       string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPassword   string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
}

type LoggerConfig struct {
	Level   string `yaml:"level" env:"LOG_LEVEL"`
	Encoder string `yaml:"encoder" env:"LOG_ENCODER"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Email    EmailConfig    `yaml:"email"`
	Logger   LoggerConfig   `yaml:"logger"`
}

// Default: значения, если в yaml и окружении ничего не задано.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        5000,
			Environment: "development",
			AllowedOrigins: map[string][]string{
				"development": {"http://127.0.0.1:5500", "http://localhost:5500"},
			},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         DriverPostgres,
			MaxOpenConns:   20,
			IdleTimeout:    30 * time.Second,
			ConnectTimeout: 10 * time.Second,
			InitAttempts:   3,
			InitRetryDelay: 5 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:         time.Hour,
			OTPTTL:           10 * time.Minute,
			BcryptCost:       10,
			StrictTokenScope: true,
		},
		Email: EmailConfig{
			Provider: ProviderSMTP,
			SMTPPort: 587,
		},
		Logger: LoggerConfig{
			Level:   "info",
			Encoder: "console",
		},
	}
}

// Load: defaults -> yaml -> .env -> переменные окружения.
// Пустой path означает SECUREAUTH_CONFIG или config/config.yaml; отсутствие файла не ошибка.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg := Default()
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrapf(err, "open %s", path)
	}

	// .env не обязателен
	_ = godotenv.Load()

	// NODE_ENV читается, только если APP_ENV не задан.
	if _, ok := os.LookupEnv(appEnvVar); !ok {
		if v := os.Getenv(legacyEnvVar); v != "" {
			cfg.Server.Environment = v
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	cfg.normalize()
	return cfg, nil
}

// LoadConfig: как Load, но падает с panic. Для main.
func LoadConfig() *Config {
	cfg, err := Load("")
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

func (c *Config) normalize() {
	c.Server.Environment = strings.ToLower(strings.TrimSpace(c.Server.Environment))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Email.Provider = strings.ToLower(strings.TrimSpace(c.Email.Provider))
}

// Validate проверяет то, без чего сервис стартовать не должен.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("server.port %d is out of range", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url (DATABASE_URL) is required for postgres driver")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	switch c.Email.Provider {
	case ProviderSMTP:
		if c.Email.SMTPHost == "" {
			return errors.New("email.smtp_host (SMTP_HOST) is required for smtp provider")
		}
	case ProviderSendGrid:
		if c.Email.SendGridAPIKey == "" {
			return errors.New("email.sendgrid_api_key (SENDGRID_API_KEY) is required for sendgrid provider")
		}
	case ProviderLog:
		return nil
	default:
		return errors.Errorf("unknown email.provider %q", c.Email.Provider)
	}
	if c.Email.FromEmail == "" {
		return errors.New("email.from_email (SENDER_EMAIL) is required")
	}
	return nil
}

// Origins: список разрешённых CORS origin'ов для текущего окружения.
func (c *Config) Origins() []string {
	if o, ok := c.Server.AllowedOrigins[c.Server.Environment]; ok {
		return o
	}
	return c.Server.AllowedOrigins["development"]
}
