package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/retry"
)

// Config is the immutable parameter bag for one operator run. It is loaded
// once in main and borrowed read-only by the connection manager and the
// archive targets.
type Config struct {
	// OpenStack credentials and endpoint selection.
	AuthURL      string
	Username     string
	Password     string
	ProjectName  string
	DomainName   string
	RegionName   string
	EndpointType string // public|internal|admin

	// TLS and object-storage specifics.
	Insecure         bool
	SwiftAuthVersion int

	// Execution mode.
	DryRun       bool
	PollInterval time.Duration

	// Archive step.
	ArchiveTarget    string // "swift" or "azure"
	ArchiveContainer string
	DeleteCopyVolume bool

	Azure AzureConfig

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryMultiplier   float64
	RetryEnableJitter bool
}

// AzureConfig carries the offsite archive target credentials.
type AzureConfig struct {
	Account   string
	Container string
	SASToken  string

	ClientID     string
	ClientSecret string
	TenantID     string
}

// Load reads config from environment variables, applies defaults and validates.
func Load() (Config, error) {
	get := func(key, def string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return def
	}

	parseInt := func(key string, def int) int {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				return n
			}
		}
		return def
	}

	parseDur := func(key string, def time.Duration) time.Duration {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				return d
			}
		}
		return def
	}

	parseFloat := func(key string, def float64) float64 {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				return f
			}
		}
		return def
	}

	parseBool := func(key string, def bool) bool {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "y", "on":
				return true
			case "0", "false", "no", "n", "off":
				return false
			}
		}
		return def
	}

	// Tenant naming moved from OS_TENANT_NAME to OS_PROJECT_NAME over the
	// Identity API's lifetime; accept both, newer name wins.
	project := strings.TrimSpace(get("OS_PROJECT_NAME", ""))
	if project == "" {
		project = strings.TrimSpace(get("OS_TENANT_NAME", ""))
	}

	cfg := Config{
		AuthURL:      strings.TrimSpace(get("OS_AUTH_URL", "")),
		Username:     strings.TrimSpace(get("OS_USERNAME", "")),
		Password:     get("OS_PASSWORD", ""),
		ProjectName:  project,
		DomainName:   strings.TrimSpace(get("OS_USER_DOMAIN_NAME", "Default")),
		RegionName:   strings.TrimSpace(get("OS_REGION_NAME", "")),
		EndpointType: strings.ToLower(strings.TrimSpace(get("OS_ENDPOINT_TYPE", "public"))),

		Insecure:         parseBool("OS_INSECURE", false),
		SwiftAuthVersion: parseInt("SWIFT_AUTH_VERSION", 2),

		DryRun:       parseBool("DRY_RUN", false),
		PollInterval: parseDur("POLL_INTERVAL", 5*time.Second),

		ArchiveTarget:    strings.ToLower(strings.TrimSpace(get("ARCHIVE_TARGET", "swift"))),
		ArchiveContainer: strings.TrimSpace(get("ARCHIVE_CONTAINER", "volume-backups")),
		DeleteCopyVolume: parseBool("DELETE_COPY_VOLUME", false),

		Azure: AzureConfig{
			Account:      get("AZURE_STORAGE_ACCOUNT", ""),
			Container:    get("AZURE_STORAGE_CONTAINER", ""),
			SASToken:     get("AZURE_STORAGE_SAS", ""),
			ClientID:     get("AZURE_CLIENT_ID", ""),
			ClientSecret: get("AZURE_CLIENT_SECRET", ""),
			TenantID:     get("AZURE_TENANT_ID", ""),
		},

		RetryMaxAttempts:  parseInt("RETRY_MAX_ATTEMPTS", retry.Default.MaxAttempts),
		RetryInitialDelay: parseDur("RETRY_INITIAL_DELAY", retry.Default.InitialDelay),
		RetryMaxDelay:     parseDur("RETRY_MAX_DELAY", retry.Default.MaxDelay),
		RetryMultiplier:   parseFloat("RETRY_MULTIPLIER", retry.Default.Multiplier),
		RetryEnableJitter: parseBool("RETRY_JITTER", retry.Default.Jitter),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate checks credential completeness and archive-target requirements.
func (c *Config) validate() error {
	if c.AuthURL == "" {
		return errors.New("OS_AUTH_URL is required")
	}
	if c.Username == "" || c.Password == "" {
		return errors.New("OS_USERNAME and OS_PASSWORD are required")
	}
	if c.ProjectName == "" {
		return errors.New("OS_PROJECT_NAME (or OS_TENANT_NAME) is required")
	}
	switch c.EndpointType {
	case "public", "internal", "admin":
	default:
		return errors.New("unsupported endpoint type: " + c.EndpointType)
	}

	switch c.ArchiveTarget {
	case "swift":
		if c.ArchiveContainer == "" {
			return errors.New("swift: ARCHIVE_CONTAINER is required")
		}
	case "azure":
		if c.Azure.Account == "" || c.Azure.Container == "" {
			return errors.New("azure: AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_CONTAINER are required")
		}
		// Accept SAS or SP (ClientID/Secret/Tenant). If neither, the provider
		// implementation falls back to the ambient default credential.
	default:
		return errors.New("unsupported archive target: " + c.ArchiveTarget)
	}
	return nil
}

// RetryOptions converts retry-related config values to retry.Options.
func (c Config) RetryOptions() retry.Options {
	return retry.Options{
		MaxAttempts:  c.RetryMaxAttempts,
		InitialDelay: c.RetryInitialDelay,
		MaxDelay:     c.RetryMaxDelay,
		Multiplier:   c.RetryMultiplier,
		Jitter:       c.RetryEnableJitter,
	}
}
