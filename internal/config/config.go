// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Defaults for optional settings.
const (
	defaultPort               = "8080"
	defaultEnvironment        = "development"
	defaultLogLevel           = "info"
	defaultTimeout            = 30 * time.Second
	defaultResolveConcurrency = 4
)

// Config holds all service configuration.
// Environment decides whether store secrets may come from Secret Manager and
// whether insecure TLS is permitted.
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (optional, production only)
	GCPProject string
	SecretName string

	// ResolveConcurrency bounds parallel slug lookups per cart.
	ResolveConcurrency int

	Store StoreConfig
}

// StoreConfig contains the WooCommerce connection settings.
// None of these are required at load time; each checkout flow reports the
// variables it is missing when it runs.
type StoreConfig struct {
	SiteURL        string `json:"site_url"`
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	SharedSecret   string `json:"shared_secret"`

	// Timeout bounds each outbound WooCommerce request.
	Timeout time.Duration `json:"-"`

	// AllowInsecureTLS disables certificate verification for store requests.
	// Rejected in production.
	AllowInsecureTLS bool `json:"-"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars, with store secrets overlaid
// from Secret Manager in production when GCP_PROJECT and SECRET_NAME are set.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", defaultPort),
		Environment: envOrDefault("ENVIRONMENT", defaultEnvironment),
		LogLevel:    envOrDefault("LOG_LEVEL", defaultLogLevel),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		SecretName:  os.Getenv("SECRET_NAME"),
		Store: StoreConfig{
			SiteURL:        os.Getenv("WOOCOMMERCE_SITE_URL"),
			ConsumerKey:    os.Getenv("WOOCOMMERCE_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("WOOCOMMERCE_CONSUMER_SECRET"),
			SharedSecret:   os.Getenv("WOO_SHARED_SECRET"),
		},
	}

	var err error
	if cfg.Store.Timeout, err = parseDuration("WOOCOMMERCE_TIMEOUT", os.Getenv("WOOCOMMERCE_TIMEOUT")); err != nil {
		return nil, err
	}
	if cfg.ResolveConcurrency, err = parseInt("RESOLVE_CONCURRENCY", os.Getenv("RESOLVE_CONCURRENCY")); err != nil {
		return nil, err
	}
	insecure, err := parseBool("ALLOW_INSECURE_TLS", os.Getenv("ALLOW_INSECURE_TLS"))
	if err != nil {
		return nil, err
	}

	if cfg.IsProduction() && (cfg.GCPProject != "" || cfg.SecretName != "") {
		if cfg.GCPProject == "" || cfg.SecretName == "" {
			return nil, fmt.Errorf("GCP_PROJECT and SECRET_NAME must be set together")
		}
		if err := cfg.loadFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading store secrets: %w", err)
		}
	}

	cfg.applyDefaults(insecure)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port               string `json:"port"`
		Environment        string `json:"environment"`
		LogLevel           string `json:"log_level"`
		ResolveConcurrency int    `json:"resolve_concurrency"`
		Store              struct {
			StoreConfig
			Timeout          string `json:"timeout"`
			AllowInsecureTLS *bool  `json:"allow_insecure_tls"`
		} `json:"store"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:               withDefault(fileConfig.Port, defaultPort),
		Environment:        withDefault(fileConfig.Environment, defaultEnvironment),
		LogLevel:           withDefault(fileConfig.LogLevel, defaultLogLevel),
		ResolveConcurrency: fileConfig.ResolveConcurrency,
		Store:              fileConfig.Store.StoreConfig,
	}

	if cfg.Store.Timeout, err = parseDuration("store.timeout", fileConfig.Store.Timeout); err != nil {
		return nil, err
	}

	cfg.applyDefaults(fileConfig.Store.AllowInsecureTLS)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// secretAccessor fetches a secret version payload. Replaced in tests.
var secretAccessor = accessSecretVersion

func accessSecretVersion(ctx context.Context, name string) ([]byte, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("accessing secret %s: %w", name, err)
	}
	return result.Payload.Data, nil
}

// loadFromSecretManager overlays store settings from a JSON secret.
// Secret name format: projects/{project}/secrets/{secret_name}/versions/latest
// Fields absent from the secret keep their env values.
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.GCPProject, c.SecretName)

	data, err := secretAccessor(ctx, secretName)
	if err != nil {
		return err
	}

	var secret StoreConfig
	if err := json.Unmarshal(data, &secret); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	c.Store.SiteURL = withDefault(secret.SiteURL, c.Store.SiteURL)
	c.Store.ConsumerKey = withDefault(secret.ConsumerKey, c.Store.ConsumerKey)
	c.Store.ConsumerSecret = withDefault(secret.ConsumerSecret, c.Store.ConsumerSecret)
	c.Store.SharedSecret = withDefault(secret.SharedSecret, c.Store.SharedSecret)
	return nil
}

// applyDefaults fills unset optional values. Insecure TLS defaults to on
// outside production, matching local stores with self-signed certificates.
func (c *Config) applyDefaults(insecure *bool) {
	if c.Store.Timeout == 0 {
		c.Store.Timeout = defaultTimeout
	}
	if c.ResolveConcurrency == 0 {
		c.ResolveConcurrency = defaultResolveConcurrency
	}
	if insecure != nil {
		c.Store.AllowInsecureTLS = *insecure
	} else {
		c.Store.AllowInsecureTLS = !c.IsProduction()
	}
}

// validate checks value ranges. Store credentials are intentionally not required.
func (c *Config) validate() error {
	if c.IsProduction() && c.Store.AllowInsecureTLS {
		return fmt.Errorf("ALLOW_INSECURE_TLS cannot be enabled in production")
	}
	if c.Store.SiteURL != "" {
		u, err := url.Parse(c.Store.SiteURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid WOOCOMMERCE_SITE_URL %q", c.Store.SiteURL)
		}
	}
	if c.Store.Timeout < 0 {
		return fmt.Errorf("WOOCOMMERCE_TIMEOUT must be positive")
	}
	if c.ResolveConcurrency < 0 {
		return fmt.Errorf("RESOLVE_CONCURRENCY must be positive")
	}
	return nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(name, val string) (time.Duration, error) {
	if val == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return d, nil
}

func parseInt(name, val string) (int, error) {
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return n, nil
}

// parseBool returns nil when val is empty so callers can apply a default.
func parseBool(name, val string) (*bool, error) {
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return &b, nil
}
