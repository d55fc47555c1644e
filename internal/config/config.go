package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for folio.
type Config struct {
	BaseDir   string           `toml:"base_dir"`
	LogDir    string           `toml:"log_dir"`
	Site      SiteConfig       `toml:"site"`
	Languages []LanguageConfig `toml:"languages"`
	UUIDCache CacheConfig      `toml:"uuid_cache"`
	PageCache CacheConfig      `toml:"page_cache"`
	Database  DatabaseConfig   `toml:"database"`
	History   HistoryConfig    `toml:"history"`
	Inventory InventoryConfig  `toml:"inventory"`
}

// SiteConfig locates the content tree and holds the site options.
type SiteConfig struct {
	ContentRoot      string   `toml:"content_root"`
	AccountsRoot     string   `toml:"accounts_root"`
	BlueprintsRoot   string   `toml:"blueprints_root"`
	ContentExtension string   `toml:"content_extension,omitempty"` // defaults to "txt"
	SlugMaxLength    int      `toml:"slug_max_length,omitempty"`   // defaults to 255
	HomePage         string   `toml:"home_page,omitempty"`
	ErrorPage        string   `toml:"error_page,omitempty"`
	ReservedSlugs    []string `toml:"reserved_slugs,omitempty"`
}

// LanguageConfig is one content language. Configuring any language
// turns on multi-language mode.
type LanguageConfig struct {
	Code    string `toml:"code"`
	Name    string `toml:"name"`
	Default bool   `toml:"default,omitempty"`
}

// CacheConfig represents configuration for a cache backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CacheConfig struct {
	Type string `toml:"type"` // "memory", "file", "sqlite", "redis", "badger" or "none"

	// Memory-specific fields (only used when Type == "memory")
	Size int `toml:"size,omitempty"` // max entries, defaults to 10000

	// File- and badger-specific fields (only used when Type == "file" or "badger")
	Dir string `toml:"dir,omitempty"`

	// Redis-specific fields (only used when Type == "redis")
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`

	// Prefix namespaces keys in shared backends (file, sqlite, redis, badger).
	Prefix string `toml:"prefix,omitempty"`
}

// DatabaseConfig represents configuration for the SQLite database backing
// the sqlite cache type.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// HistoryConfig enables recording every content change as a git commit
// in the content root.
type HistoryConfig struct {
	Enabled     bool   `toml:"enabled"`
	AuthorName  string `toml:"author_name,omitempty"`
	AuthorEmail string `toml:"author_email,omitempty"`
}

// InventoryConfig holds directory scanning settings.
type InventoryConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config with every path below baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Site: SiteConfig{
			ContentRoot:    filepath.Join(baseDir, "content"),
			AccountsRoot:   filepath.Join(baseDir, "accounts"),
			BlueprintsRoot: filepath.Join(baseDir, "blueprints"),
		},
		UUIDCache: CacheConfig{Type: "file", Dir: filepath.Join(baseDir, "cache")},
		PageCache: CacheConfig{Type: "memory"},
		Database:  DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
	}
}

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	if c.Site.ContentRoot == "" {
		return fmt.Errorf("site.content_root is required")
	}
	defaults := 0
	seen := make(map[string]bool, len(c.Languages))
	for _, l := range c.Languages {
		if l.Code == "" {
			return fmt.Errorf("language without code")
		}
		if seen[l.Code] {
			return fmt.Errorf("duplicate language %q", l.Code)
		}
		seen[l.Code] = true
		if l.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("more than one default language")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes a new config file. It refuses to overwrite an existing one.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
