package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AppName     = "estate-pricer"
	EnvFileName = "config.env"
)

// Environment variables holding credentials. Secrets are never read from
// the YAML file.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvEbayAppID       = "EBAY_APP_ID"
	EnvListingAPIKey   = "LISTING_API_KEY"
	EnvFirecrawlAPIKey = "FIRECRAWL_API_KEY"
)

// CredentialState says whether a credential was supplied.
type CredentialState int

const (
	Unconfigured CredentialState = iota
	Configured
)

func (s CredentialState) String() string {
	if s == Configured {
		return "configured"
	}
	return "unconfigured"
}

// Credential is a secret together with its presence state.
type Credential struct {
	State CredentialState
	Value string
}

// NewCredential returns a Configured credential for a non-empty value.
func NewCredential(value string) Credential {
	if value == "" {
		return Credential{State: Unconfigured}
	}
	return Credential{State: Configured, Value: value}
}

// Configured reports whether the credential is present.
func (c Credential) Configured() bool {
	return c.State == Configured
}

// AnalyzerConfig controls the vision side of the pipeline.
type AnalyzerConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	MaxPhotos       int           `yaml:"max_photos"`
	Concurrency     int           `yaml:"concurrency"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`
	NameThreshold   float64       `yaml:"name_threshold"`
	QueryThreshold  float64       `yaml:"query_threshold"`
	MaxImageBytes   int64         `yaml:"max_image_bytes"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	UseThumbnails   bool          `yaml:"use_thumbnails"`
	VisionCache     bool          `yaml:"vision_cache"`
	// MaxImageDimension bounds the longest edge of a photo sent to the
	// vision model. Zero sends photos as downloaded.
	MaxImageDimension int `yaml:"max_image_dimension"`
}

// PricerConfig controls marketplace lookups.
type PricerConfig struct {
	BaseURL             string        `yaml:"base_url"`
	GlobalID            string        `yaml:"global_id"`
	PageSize            int           `yaml:"page_size"`
	Concurrency         int           `yaml:"concurrency"`
	CallTimeout         time.Duration `yaml:"call_timeout"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	BroadeningThreshold int           `yaml:"broadening_threshold"`
	// OutlierStdDevs drops sold prices further than this many standard
	// deviations from the mean. Zero disables it.
	OutlierStdDevs float64 `yaml:"outlier_std_devs"`
}

// ListingConfig selects and configures the listing source.
type ListingConfig struct {
	Source          string `yaml:"source"` // "api" or "firecrawl"
	BaseURL         string `yaml:"base_url"`
	PageURLTemplate string `yaml:"page_url_template"`
}

// ServerConfig configures the HTTP invocation surface.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReportCacheSize int      `yaml:"report_cache_size"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// StorageConfig configures the SQLite cache database. The default ":memory:"
// keeps caches for the lifetime of the process only.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Config is the full application configuration, passed explicitly to every
// component that needs it.
type Config struct {
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Pricer   PricerConfig   `yaml:"pricer"`
	Listing  ListingConfig  `yaml:"listing"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`

	GeminiKey    Credential `yaml:"-"`
	OpenAIKey    Credential `yaml:"-"`
	EbayAppID    Credential `yaml:"-"`
	ListingKey   Credential `yaml:"-"`
	FirecrawlKey Credential `yaml:"-"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Analyzer: AnalyzerConfig{
			Provider:        "gemini",
			Model:           "gemini-3-flash-preview",
			MaxPhotos:       10,
			Concurrency:     3,
			CallTimeout:     90 * time.Second,
			AnalysisTimeout: 5 * time.Minute,
			NameThreshold:   0.75,
			QueryThreshold:  0.70,
			MaxImageBytes:   10 * 1024 * 1024,
			DownloadTimeout: 30 * time.Second,
			VisionCache:     true,

			MaxImageDimension: 1568,
		},
		Pricer: PricerConfig{
			BaseURL:     "https://svcs.ebay.com",
			GlobalID:    "EBAY-US",
			PageSize:    8,
			Concurrency: 3,
			CallTimeout: 20 * time.Second,
			CacheTTL:    7 * 24 * time.Hour,
		},
		Listing: ListingConfig{
			Source:          "api",
			BaseURL:         "https://www.estatesales.net",
			PageURLTemplate: "https://www.estatesales.net/sale/%s",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReportCacheSize: 128,
		},
		Storage: StorageConfig{
			Path: ":memory:",
		},
	}
}

// VisionCredential returns the credential for the configured provider.
func (c Config) VisionCredential() Credential {
	if c.Analyzer.Provider == "openai" {
		return c.OpenAIKey
	}
	return c.GeminiKey
}

// VisionEnvVar returns the environment variable the configured provider
// reads its key from.
func (c Config) VisionEnvVar() string {
	if c.Analyzer.Provider == "openai" {
		return EnvOpenAIAPIKey
	}
	return EnvGeminiAPIKey
}

// Load reads defaults, then the YAML file at path (if non-empty and
// present), then credentials from the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	cfg.LoadCredentials()
	return cfg, nil
}

// LoadCredentials refreshes every credential from the environment.
func (c *Config) LoadCredentials() {
	c.GeminiKey = NewCredential(os.Getenv(EnvGeminiAPIKey))
	c.OpenAIKey = NewCredential(os.Getenv(EnvOpenAIAPIKey))
	c.EbayAppID = NewCredential(os.Getenv(EnvEbayAppID))
	c.ListingKey = NewCredential(os.Getenv(EnvListingAPIKey))
	c.FirecrawlKey = NewCredential(os.Getenv(EnvFirecrawlAPIKey))
}

func (c Config) validate() error {
	switch c.Analyzer.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown analyzer provider %q", c.Analyzer.Provider)
	}
	switch c.Listing.Source {
	case "api", "firecrawl":
	default:
		return fmt.Errorf("unknown listing source %q", c.Listing.Source)
	}
	if c.Analyzer.MaxPhotos < 1 {
		return fmt.Errorf("analyzer.max_photos must be positive")
	}
	if c.Analyzer.Concurrency < 1 || c.Pricer.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Analyzer.MaxImageDimension < 0 {
		return fmt.Errorf("analyzer.max_image_dimension must not be negative")
	}
	if c.Pricer.OutlierStdDevs < 0 {
		return fmt.Errorf("pricer.outlier_std_devs must not be negative")
	}
	return nil
}

// Dir returns the user config directory for the app.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configBase, AppName), nil
}

// EnvFilePath returns the path of the env file written by the setup wizard.
func EnvFilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the user config env file and
// then ./.env. Existing variables are not overridden and missing files are
// ignored.
func LoadEnvFile() {
	if path, err := EnvFilePath(); err == nil {
		_ = godotenv.Load(path)
	}
	_ = godotenv.Load()
}
