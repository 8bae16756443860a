package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "SNAPFEST"

	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultLogLevel          = "info"
	defaultCatalogCapacity   = 200
	defaultNicknameMaxRunes  = 10
	defaultSessionTimeout    = 5 * time.Minute
	defaultSweepInterval     = 60 * time.Second
	defaultStorageMode       = "inline"
	defaultMaxImageDimension = 1280
	defaultJPEGQuality       = 82
)

// AppConfig captures runtime configuration for the contest API server.
type AppConfig struct {
	HTTPAddress        string
	LogLevel           string
	AdminSigningSecret string

	CatalogCapacity  int
	NicknameMaxRunes int

	SessionTimeout   time.Duration
	SweepInterval    time.Duration
	InactivityWindow time.Duration

	MediaBaseURL     string
	MediaAccessToken string

	StorageMode       string
	MaxImageDimension int
	JPEGQuality       int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3PublicURL string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("catalog.capacity", defaultCatalogCapacity)
	configViper.SetDefault("catalog.nickname_max_runes", defaultNicknameMaxRunes)
	configViper.SetDefault("session.timeout", defaultSessionTimeout)
	configViper.SetDefault("session.sweep_interval", defaultSweepInterval)
	configViper.SetDefault("session.inactivity_window", time.Duration(0))
	configViper.SetDefault("storage.mode", defaultStorageMode)
	configViper.SetDefault("storage.max_image_dimension", defaultMaxImageDimension)
	configViper.SetDefault("storage.jpeg_quality", defaultJPEGQuality)
	configViper.SetDefault("s3.use_ssl", true)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		LogLevel:           configViper.GetString("log.level"),
		AdminSigningSecret: configViper.GetString("admin.signing_secret"),
		CatalogCapacity:    configViper.GetInt("catalog.capacity"),
		NicknameMaxRunes:   configViper.GetInt("catalog.nickname_max_runes"),
		SessionTimeout:     configViper.GetDuration("session.timeout"),
		SweepInterval:      configViper.GetDuration("session.sweep_interval"),
		InactivityWindow:   configViper.GetDuration("session.inactivity_window"),
		MediaBaseURL:       configViper.GetString("media.base_url"),
		MediaAccessToken:   configViper.GetString("media.access_token"),
		StorageMode:        strings.ToLower(configViper.GetString("storage.mode")),
		MaxImageDimension:  configViper.GetInt("storage.max_image_dimension"),
		JPEGQuality:        configViper.GetInt("storage.jpeg_quality"),
		S3Endpoint:         configViper.GetString("s3.endpoint"),
		S3AccessKey:        configViper.GetString("s3.access_key"),
		S3SecretKey:        configViper.GetString("s3.secret_key"),
		S3Bucket:           configViper.GetString("s3.bucket"),
		S3UseSSL:           configViper.GetBool("s3.use_ssl"),
		S3PublicURL:        configViper.GetString("s3.public_url"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AdminSigningSecret) == "" {
		return fmt.Errorf("admin.signing_secret is required")
	}
	if c.CatalogCapacity <= 0 {
		return fmt.Errorf("catalog.capacity must be positive")
	}
	if c.NicknameMaxRunes <= 0 {
		return fmt.Errorf("catalog.nickname_max_runes must be positive")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session.timeout must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive")
	}
	if strings.TrimSpace(c.MediaBaseURL) == "" {
		return fmt.Errorf("media.base_url is required")
	}
	if c.InactivityWindow < 0 {
		return fmt.Errorf("session.inactivity_window must not be negative")
	}
	switch c.StorageMode {
	case "inline":
	case "s3":
		if strings.TrimSpace(c.S3Endpoint) == "" {
			return fmt.Errorf("s3.endpoint is required when storage.mode is s3")
		}
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("s3.bucket is required when storage.mode is s3")
		}
	default:
		return fmt.Errorf("storage.mode must be inline or s3")
	}
	return nil
}
