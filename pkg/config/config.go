package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = ".enrollctl.yml"
	DotEnvFileName = ".env"
	EnvPrefix      = "ENROLLCTL"
)

// Config represents the client configuration
type Config struct {
	API       APIConfig       `yaml:"api"`
	Institute InstituteConfig `yaml:"institute"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Search    SearchConfig    `yaml:"search"`
	Output    OutputConfig    `yaml:"output"`

	// Token is only ever read from the environment.
	Token string `yaml:"-"`
}

// APIConfig represents the remote platform endpoint
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// InstituteConfig represents the institute the client acts for
type InstituteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

// DefaultsConfig represents default bulk operation options
type DefaultsConfig struct {
	DuplicateHandling string `yaml:"duplicate_handling"`
	NotifyLearners    bool   `yaml:"notify_learners"`
	DeassignMode      string `yaml:"deassign_mode"`
}

// SearchConfig represents invite search behaviour
type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	PageSize int           `yaml:"page_size"`
}

// OutputConfig represents output preferences
type OutputConfig struct {
	Format string `yaml:"format"`
	Color  bool   `yaml:"color"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Defaults: DefaultsConfig{
			DuplicateHandling: "SKIP",
			NotifyLearners:    true,
			DeassignMode:      "SOFT",
		},
		Search: SearchConfig{
			Debounce: 300 * time.Millisecond,
			PageSize: 20,
		},
		Output: OutputConfig{
			Format: "table",
			Color:  true,
		},
	}
}

// Load loads configuration from the config file found in the current or a
// parent directory, then applies environment overrides.
func Load() (*Config, error) {
	configPath := findConfigFile()
	if configPath == "" {
		return nil, fmt.Errorf("configuration file %s not found in current or parent directories", ConfigFileName)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from an explicit path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}
	cfg.applyEnv(newEnv())

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// loadDotEnv loads a .env file next to the config file if one exists
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, DotEnvFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnv overlays ENROLLCTL_* environment variables
func (c *Config) applyEnv(v *viper.Viper) {
	if s := v.GetString("token"); s != "" {
		c.Token = s
	}
	if s := v.GetString("api.base_url"); s != "" {
		c.API.BaseURL = s
	}
	if d := v.GetDuration("api.timeout"); d > 0 {
		c.API.Timeout = d
	}
	if s := v.GetString("institute.id"); s != "" {
		c.Institute.ID = s
	}
	if s := v.GetString("output.format"); s != "" {
		c.Output.Format = s
	}
}

// findConfigFile searches for config file in current and parent directories
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// FindConfigPath returns the configuration file in the current or a parent
// directory, or "" when there is none
func FindConfigPath() string {
	return findConfigFile()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url '%s': must be an absolute http(s) URL", c.API.BaseURL)
	}

	if c.Institute.ID == "" {
		return fmt.Errorf("institute.id is required")
	}

	switch c.Defaults.DuplicateHandling {
	case "", "SKIP", "RE_ENROLL", "ERROR":
	default:
		return fmt.Errorf("invalid defaults.duplicate_handling '%s': must be one of SKIP, RE_ENROLL, ERROR", c.Defaults.DuplicateHandling)
	}

	switch c.Defaults.DeassignMode {
	case "", "SOFT", "HARD":
	default:
		return fmt.Errorf("invalid defaults.deassign_mode '%s': must be SOFT or HARD", c.Defaults.DeassignMode)
	}

	if c.Search.PageSize < 1 || c.Search.PageSize > 100 {
		return fmt.Errorf("search.page_size must be between 1 and 100")
	}

	return nil
}

// Host returns the host name of the API base URL, without port
func (c *Config) Host() string {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Endpoint joins path segments onto the institute-scoped API base URL
func (c *Config) Endpoint(segments ...string) string {
	base := strings.TrimRight(c.API.BaseURL, "/")
	parts := []string{base, "institutes", url.PathEscape(c.Institute.ID)}
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}
