// Package config loads the site configuration from defaults, an optional
// .env file, the process environment and explicit overrides.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultEnvironment      = "dev"
	defaultLocale           = "en"
	defaultRelayEndpoint    = "https://api.emailjs.com/api/v1.0/email/send"
	defaultRelayTimeout     = 8 * time.Second
	defaultRelayMaxRetries  = 3
	defaultContactPerMinute = 5
	defaultContactBurst     = 3
	defaultMaxMessageLength = 2000
	defaultParticleCount    = 25
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Site     SiteConfig
	Content  ContentConfig
	Relay    RelayConfig
	Contact  ContactConfig
	Security SecurityConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr is the listen address for Port.
func (s ServerConfig) Addr() string { return ":" + s.Port }

// SiteConfig describes the deployment.
type SiteConfig struct {
	Environment   string
	Dev           bool
	URL           string
	LogLevel      string
	DefaultLocale string
	ParticleCount int
	ParticleSeed  uint64
}

// ContentConfig locates the site content file. An empty File serves the
// embedded content.
type ContentConfig struct {
	File  string
	Watch bool
}

// RelayConfig holds the EmailJS credentials used by the contact form.
type RelayConfig struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Timeout    time.Duration
	MaxRetries int
}

// Configured reports whether enough credentials are present to send mail.
func (r RelayConfig) Configured() bool {
	return r.ServiceID != "" && r.TemplateID != "" && r.PublicKey != ""
}

// ContactConfig throttles and bounds contact form submissions.
type ContactConfig struct {
	RatePerMinute    int
	Burst            int
	MaxMessageLength int
}

// SecurityConfig groups browser-facing protections.
type SecurityConfig struct {
	AllowedOrigins []string
	SecureCookies  bool
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path. An empty path skips the file.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values; they take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv stops Load from reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration. Precedence, lowest first: defaults,
// .env file, process environment, WithEnvMap.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	env := strings.ToLower(stringWithDefault(lookup, "KULHAD_WEB_ENV", defaultEnvironment))
	dev := boolWithDefault(lookup, "KULHAD_WEB_DEV", env == "dev")

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "KULHAD_WEB_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:     durationWithDefault(lookup, "KULHAD_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "KULHAD_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "KULHAD_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "KULHAD_WEB_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Site: SiteConfig{
			Environment:   env,
			Dev:           dev,
			URL:           strings.TrimRight(stringWithDefault(lookup, "KULHAD_WEB_SITE_URL", ""), "/"),
			LogLevel:      stringWithDefault(lookup, "LOG_LEVEL", ""),
			DefaultLocale: strings.ToLower(stringWithDefault(lookup, "KULHAD_WEB_DEFAULT_LOCALE", defaultLocale)),
			ParticleCount: intWithDefault(lookup, "KULHAD_WEB_PARTICLES", defaultParticleCount),
			ParticleSeed:  uint64(intWithDefault(lookup, "KULHAD_WEB_PARTICLE_SEED", 0)),
		},
		Content: ContentConfig{
			File:  stringWithDefault(lookup, "KULHAD_WEB_CONTENT_FILE", ""),
			Watch: boolWithDefault(lookup, "KULHAD_WEB_CONTENT_WATCH", dev),
		},
		Relay: RelayConfig{
			Endpoint:   stringWithDefault(lookup, "KULHAD_WEB_EMAILJS_ENDPOINT", defaultRelayEndpoint),
			ServiceID:  stringWithDefault(lookup, "KULHAD_WEB_EMAILJS_SERVICE_ID", ""),
			TemplateID: stringWithDefault(lookup, "KULHAD_WEB_EMAILJS_TEMPLATE_ID", ""),
			PublicKey:  stringWithDefault(lookup, "KULHAD_WEB_EMAILJS_PUBLIC_KEY", ""),
			PrivateKey: stringWithDefault(lookup, "KULHAD_WEB_EMAILJS_PRIVATE_KEY", ""),
			Timeout:    durationWithDefault(lookup, "KULHAD_WEB_EMAILJS_TIMEOUT", defaultRelayTimeout),
			MaxRetries: intWithDefault(lookup, "KULHAD_WEB_EMAILJS_MAX_RETRIES", defaultRelayMaxRetries),
		},
		Contact: ContactConfig{
			RatePerMinute:    intWithDefault(lookup, "KULHAD_WEB_CONTACT_RATE_PER_MINUTE", defaultContactPerMinute),
			Burst:            intWithDefault(lookup, "KULHAD_WEB_CONTACT_BURST", defaultContactBurst),
			MaxMessageLength: intWithDefault(lookup, "KULHAD_WEB_CONTACT_MAX_MESSAGE", defaultMaxMessageLength),
		},
		Security: SecurityConfig{
			AllowedOrigins: csvWithDefault(lookup, "KULHAD_WEB_ALLOWED_ORIGINS"),
			SecureCookies:  boolWithDefault(lookup, "KULHAD_WEB_SECURE_COOKIES", !dev),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		invalid = append(invalid, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		invalid = append(invalid, "Server.WriteTimeout")
	}
	if cfg.Site.URL != "" {
		if u, err := url.Parse(cfg.Site.URL); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "Site.URL")
		}
	}
	if cfg.Site.ParticleCount < 0 {
		invalid = append(invalid, "Site.ParticleCount")
	}
	relay := cfg.Relay
	if partial := relay.ServiceID != "" || relay.TemplateID != "" || relay.PublicKey != ""; partial && !relay.Configured() {
		invalid = append(invalid, "Relay.Credentials")
	}
	if relay.MaxRetries < 0 {
		invalid = append(invalid, "Relay.MaxRetries")
	}
	if cfg.Contact.RatePerMinute <= 0 {
		invalid = append(invalid, "Contact.RatePerMinute")
	}
	if cfg.Contact.Burst <= 0 {
		invalid = append(invalid, "Contact.Burst")
	}
	if cfg.Contact.MaxMessageLength <= 0 {
		invalid = append(invalid, "Contact.MaxMessageLength")
	}
	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
