package types

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ClientConfig identifies one application against the remote config service
// and drives how its namespaces are fetched and cached.
// AppID and ConfigServer are mandatory. Secret, when set, turns on signed
// requests. IP and Label are grayscale targeting hints sent as query
// parameters; they also partition the durable tier so a targeted variant
// never shadows the default one.
// CacheTTL bounds how long a durable record may serve as a fallback; zero
// means records never expire by age.
type ClientConfig struct {
	AppID        string        `json:"app_id"`
	Cluster      string        `json:"cluster"`
	ConfigServer string        `json:"config_server"`
	Secret       string        `json:"secret,omitempty"`
	IP           string        `json:"ip,omitempty"`
	Label        string        `json:"label,omitempty"`
	CacheDir     string        `json:"cache_dir,omitempty"`
	CacheTTL     time.Duration `json:"cache_ttl,omitempty"`
	PollInterval time.Duration `json:"poll_interval,omitempty"`
}

const (
	AppIDEnvKey        = "APP_ID"
	ConfigServerEnvKey = "APOLLO_CONFIG_SERVICE"
	SecretEnvKey       = "APOLLO_ACCESS_KEY_SECRET"
	ClusterEnvKey      = "IDC"
	LabelEnvKey        = "APOLLO_LABEL"
	CacheDirEnvKey     = "APOLLO_CACHE_DIR"
	CacheTTLEnvKey     = "APOLLO_CACHE_TTL"
	PollIntervalEnvKey = "APOLLO_POLL_INTERVAL"

	DefaultCluster      = "default"
	DefaultCacheDir     = "/opt/data"
	DefaultPollInterval = 30 * time.Second
)

// ConfigFromEnv builds a ClientConfig from environment variables.
// APP_ID and APOLLO_CONFIG_SERVICE are required; everything else falls back
// to defaults. TTL and poll interval are given in seconds.
func ConfigFromEnv() (ClientConfig, error) {
	cfg := ClientConfig{
		AppID:        os.Getenv(AppIDEnvKey),
		Cluster:      getenv(ClusterEnvKey, DefaultCluster),
		ConfigServer: os.Getenv(ConfigServerEnvKey),
		Secret:       os.Getenv(SecretEnvKey),
		Label:        os.Getenv(LabelEnvKey),
		CacheDir:     os.Getenv(CacheDirEnvKey),
		PollInterval: DefaultPollInterval,
	}
	if v := os.Getenv(CacheTTLEnvKey); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return ClientConfig{}, Err(ErrInvalidConfig, err, "invalid %s: %q", CacheTTLEnvKey, v)
		}
		cfg.CacheTTL = time.Duration(secs) * time.Second
	}
	if v := os.Getenv(PollIntervalEnvKey); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return ClientConfig{}, Err(ErrInvalidConfig, err, "invalid %s: %q", PollIntervalEnvKey, v)
		}
		cfg.PollInterval = time.Duration(secs) * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func (c ClientConfig) Validate() error {
	if c.AppID == "" {
		return Err(ErrInvalidConfig, nil, "app_id is required")
	}
	if c.ConfigServer == "" {
		return Err(ErrInvalidConfig, nil, "config_server is required")
	}
	if c.Cluster == "" {
		return Err(ErrInvalidConfig, nil, "cluster is required")
	}
	if c.CacheTTL < 0 {
		return Err(ErrInvalidConfig, nil, "cache_ttl must be non-negative")
	}
	return nil
}

// CacheKey names the durable record for a namespace. Grayscale targeting
// fields are folded in so a variant config is stored apart from the default.
func (c ClientConfig) CacheKey(namespace string) string {
	key := namespace
	if c.IP != "" {
		key += "_" + c.IP
	}
	if c.Label != "" {
		key += "_" + c.Label
	}
	return key
}

// CachePath is the directory file-backed durable stores write under.
func (c ClientConfig) CachePath() string {
	base := c.CacheDir
	if base == "" {
		base = DefaultCacheDir
	}
	return filepath.Join(base, c.AppID, "config-cache")
}

// getenv retrieves the value of the environment variable named by the key.
func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
