package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or an env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	Sinch SinchConfig
	Samba SambaConfig
}

type AppConfig struct {
	Env  string
	Port int

	// StaticDir optionally serves the admin UI; empty disables it.
	StaticDir string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration

	// AdminUsername/AdminPassword are the credentials accepted by the
	// admin API login endpoint.
	AdminUsername string
	AdminPassword string
}

// SinchConfig covers both callback signature validation (application key and
// secret) and the conference control API (region selects the base URL).
type SinchConfig struct {
	ApplicationKey    string
	ApplicationSecret string
	Region            string
}

// SambaConfig configures the Digital Samba room notifier.
type SambaConfig struct {
	BaseURL      string
	DeveloperKey string

	// SendCallerNumber controls whether caller line identities are
	// forwarded to the room service.
	SendCallerNumber bool
}

// Sinch Calling API regional endpoints.
var sinchRegionURLs = map[string]string{
	"global":        "https://calling.api.sinch.com",
	"europe":        "https://calling-euc1.api.sinch.com",
	"northamerica":  "https://calling-use1.api.sinch.com",
	"southamerica":  "https://calling-sae1.api.sinch.com",
	"asiasoutheast1": "https://calling-apse1.api.sinch.com",
	"asiasoutheast2": "https://calling-apse2.api.sinch.com",
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.StaticDir = strings.TrimSpace(os.Getenv("STATIC_DIR"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.AdminUsername = strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
	c.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	c.Sinch.ApplicationKey = strings.TrimSpace(os.Getenv("SINCH_APPLICATION_KEY"))
	c.Sinch.ApplicationSecret = os.Getenv("SINCH_APPLICATION_SECRET")
	c.Sinch.Region = strings.ToLower(strings.TrimSpace(os.Getenv("SINCH_REGION")))
	if c.Sinch.Region == "" {
		c.Sinch.Region = "europe"
	}

	c.Samba.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("DIGITAL_SAMBA_API_URL")), "/")
	if c.Samba.BaseURL == "" {
		c.Samba.BaseURL = "https://api.digitalsamba.com"
	}
	c.Samba.DeveloperKey = os.Getenv("DIGITAL_SAMBA_DEVELOPER_KEY")
	c.Samba.SendCallerNumber = strings.TrimSpace(os.Getenv("SEND_CALLER_NUMBER")) != "false"

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AdminUsername == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME is required"))
	}
	if c.Auth.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Sinch.ApplicationKey == "" {
		errs = append(errs, errors.New("SINCH_APPLICATION_KEY is required"))
	}
	if c.Sinch.ApplicationSecret == "" {
		errs = append(errs, errors.New("SINCH_APPLICATION_SECRET is required"))
	}
	if _, ok := sinchRegionURLs[c.Sinch.Region]; !ok {
		errs = append(errs, fmt.Errorf("SINCH_REGION %q is not a known region", c.Sinch.Region))
	}

	if c.Samba.DeveloperKey == "" {
		errs = append(errs, errors.New("DIGITAL_SAMBA_DEVELOPER_KEY is required"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// SinchBaseURL resolves the Calling API endpoint for the configured region.
func (c Config) SinchBaseURL() string {
	return sinchRegionURLs[c.Sinch.Region]
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
