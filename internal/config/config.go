package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Sink kinds.
const (
	SinkSupabase = "supabase"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

// Config is built once at startup and passed to every stage of the sync.
type Config struct {
	Sources       []Source      `yaml:"sources"`
	ItemsPerFeed  int           `yaml:"items_per_feed"`
	FetchFullText bool          `yaml:"fetch_full_text"`
	FeedTimeout   int           `yaml:"feed_timeout_seconds"`
	Summarization Summarization `yaml:"summarization"`
	Sink          Sink          `yaml:"sink"`
	Server        Server        `yaml:"server"`
}

// Source is one configured feed.
type Source struct {
	Name  string `yaml:"name" json:"name"`
	URL   string `yaml:"url" json:"url"`
	Emoji string `yaml:"emoji" json:"emoji"`
}

type Summarization struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"-"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Sink struct {
	Kind        string `yaml:"kind"`
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"-"`
	DatabaseURL string `yaml:"-"`
	DataDir     string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for yuzuwhale.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "yuzuwhale")
}

// DataDir returns the XDG data directory for yuzuwhale.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "yuzuwhale")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/yuzuwhale/config.yaml > ./config.yaml.
// An empty path means no file was found and the embedded defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads a config YAML file (or the embedded defaults when path is empty),
// then applies environment overrides.
func Load(path string, getenv func(string) string) (*Config, error) {
	data := DefaultConfigYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.validateLimits(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		ItemsPerFeed: 6,
		FeedTimeout:  30,
		Summarization: Summarization{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 120,
		},
		Sink:   Sink{Kind: SinkSupabase},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SUPABASE_URL"); v != "" {
		c.Sink.SupabaseURL = v
	}
	c.Sink.SupabaseKey = getenv("SUPABASE_SERVICE_ROLE_KEY")
	c.Sink.DatabaseURL = getenv("DATABASE_URL")
	if v := getenv("NEWS_SINK"); v != "" {
		c.Sink.Kind = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("YUZU_DATA_DIR"); v != "" {
		c.Sink.DataDir = v
	}

	c.Summarization.APIKey = getenv("OPENAI_API_KEY")
	if v := getenv("OPENAI_BASE_URL"); v != "" {
		c.Summarization.BaseURL = v
	}
	c.Summarization.BaseURL = strings.TrimRight(c.Summarization.BaseURL, "/")
	if v := getenv("OPENAI_MODEL"); v != "" {
		c.Summarization.Model = v
	}

	if v := getenv("RSS_ITEMS_PER_FEED"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid RSS_ITEMS_PER_FEED %q: must be a positive integer", v)
		}
		c.ItemsPerFeed = n
	}

	if v := getenv("RSS_SOURCES"); v != "" {
		var sources []Source
		if err := json.Unmarshal([]byte(v), &sources); err != nil {
			return fmt.Errorf("parsing RSS_SOURCES: %w", err)
		}
		c.Sources = sources
	}

	if v := getenv("RSS_FETCH_FULL_TEXT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RSS_FETCH_FULL_TEXT %q: %w", v, err)
		}
		c.FetchFullText = b
	}

	if err := intEnv(getenv, "RSS_TIMEOUT_SECONDS", &c.FeedTimeout); err != nil {
		return err
	}
	return intEnv(getenv, "LLM_TIMEOUT_SECONDS", &c.Summarization.TimeoutSeconds)
}

// validateLimits rejects non-positive counts and timeouts from any source.
func (c *Config) validateLimits() error {
	switch {
	case c.ItemsPerFeed <= 0:
		return fmt.Errorf("invalid items_per_feed %d: must be a positive integer", c.ItemsPerFeed)
	case c.FeedTimeout <= 0:
		return fmt.Errorf("invalid feed_timeout_seconds %d: must be a positive integer", c.FeedTimeout)
	case c.Summarization.TimeoutSeconds <= 0:
		return fmt.Errorf("invalid summarization.timeout_seconds %d: must be a positive integer", c.Summarization.TimeoutSeconds)
	}
	return nil
}

func intEnv(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	*dst = n
	return nil
}

// ValidateSync checks everything the sync command needs before it does any I/O.
func (c *Config) ValidateSync() error {
	if err := c.ValidateSink(); err != nil {
		return err
	}
	if c.Summarization.APIKey == "" {
		return fmt.Errorf("missing OPENAI_API_KEY")
	}
	return nil
}

// ValidateSink checks the credentials of the selected sink.
func (c *Config) ValidateSink() error {
	switch c.Sink.Kind {
	case SinkSupabase:
		if c.Sink.SupabaseURL == "" || c.Sink.SupabaseKey == "" {
			return fmt.Errorf("missing SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY")
		}
	case SinkPostgres:
		if c.Sink.DatabaseURL == "" {
			return fmt.Errorf("missing DATABASE_URL for postgres sink")
		}
	case SinkSQLite:
	default:
		return fmt.Errorf("unknown sink %q (want supabase, postgres or sqlite)", c.Sink.Kind)
	}

	for i, s := range c.Sources {
		if s.URL == "" {
			return fmt.Errorf("source %d (%q) has no url", i, s.Name)
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Sink.DataDir != "" {
		return c.Sink.DataDir
	}
	return DataDir()
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
