package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings
type Config struct {
	// Projects to build datasets for
	Projects []ProjectConfig `mapstructure:"projects" yaml:"projects"`

	// Tracker configuration
	Jira   JiraConfig   `mapstructure:"jira" yaml:"jira"`
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`

	// Repository access
	Git GitConfig `mapstructure:"git" yaml:"git"`

	// Storage configuration
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Tracker response cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Dataset output
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Number of projects processed concurrently
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// ProjectConfig describes one analysed project
type ProjectConfig struct {
	Key      string `mapstructure:"key" yaml:"key"`           // Tracker key, e.g. "AVRO"
	Tracker  string `mapstructure:"tracker" yaml:"tracker"`   // "jira" or "github"
	RepoURL  string `mapstructure:"repo_url" yaml:"repo_url"` // Clone URL
	RepoPath string `mapstructure:"repo_path" yaml:"repo_path"`

	// GitHub tracker only
	Owner               string `mapstructure:"owner" yaml:"owner"`
	Repo                string `mapstructure:"repo" yaml:"repo"`
	BugLabel            string `mapstructure:"bug_label" yaml:"bug_label"`
	AffectedLabelPrefix string `mapstructure:"affected_label_prefix" yaml:"affected_label_prefix"`
}

type JiraConfig struct {
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`
	PageSize  int     `mapstructure:"page_size" yaml:"page_size"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
}

type GitHubConfig struct {
	Token     string  `mapstructure:"token" yaml:"token"`
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"` // Enterprise API root, empty for github.com
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

type GitConfig struct {
	WorkDir       string `mapstructure:"work_dir" yaml:"work_dir"`
	KeepClone     bool   `mapstructure:"keep_clone" yaml:"keep_clone"`
	FileExtension string `mapstructure:"file_extension" yaml:"file_extension"`
	SeedHeadFiles bool   `mapstructure:"seed_head_files" yaml:"seed_head_files"`
}

type StorageConfig struct {
	Type        string `mapstructure:"type" yaml:"type"` // "none", "sqlite", "postgres"
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	LocalPath   string `mapstructure:"local_path" yaml:"local_path"`
}

type CacheConfig struct {
	Path string        `mapstructure:"path" yaml:"path"` // bbolt file, empty disables caching
	TTL  time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	ARFF      bool   `mapstructure:"arff" yaml:"arff"`
	Manifest  bool   `mapstructure:"manifest" yaml:"manifest"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Jira: JiraConfig{
			BaseURL:   "https://issues.apache.org/jira",
			PageSize:  1000,
			RateLimit: 5,
		},
		GitHub: GitHubConfig{
			RateLimit: 10,
		},
		Git: GitConfig{
			WorkDir:       filepath.Join(os.TempDir(), "defectset"),
			FileExtension: ".java",
			SeedHeadFiles: true,
		},
		Storage: StorageConfig{
			Type:      "none",
			LocalPath: filepath.Join(homeDir, ".defectset", "runs.db"),
		},
		Cache: CacheConfig{
			Path: filepath.Join(homeDir, ".defectset", "cache.db"),
			TTL:  24 * time.Hour,
		},
		Output: OutputConfig{
			Directory: "output",
			ARFF:      true,
			Manifest:  true,
		},
		Workers: 1,
	}
}

// setDefaults registers every leaf key so DEFECTSET_* variables can
// override nested values.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("jira.base_url", cfg.Jira.BaseURL)
	v.SetDefault("jira.page_size", cfg.Jira.PageSize)
	v.SetDefault("jira.rate_limit", cfg.Jira.RateLimit)
	v.SetDefault("github.token", cfg.GitHub.Token)
	v.SetDefault("github.base_url", cfg.GitHub.BaseURL)
	v.SetDefault("github.rate_limit", cfg.GitHub.RateLimit)
	v.SetDefault("git.work_dir", cfg.Git.WorkDir)
	v.SetDefault("git.keep_clone", cfg.Git.KeepClone)
	v.SetDefault("git.file_extension", cfg.Git.FileExtension)
	v.SetDefault("git.seed_head_files", cfg.Git.SeedHeadFiles)
	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)
	v.SetDefault("storage.local_path", cfg.Storage.LocalPath)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("output.directory", cfg.Output.Directory)
	v.SetDefault("output.arff", cfg.Output.ARFF)
	v.SetDefault("output.manifest", cfg.Output.Manifest)
	v.SetDefault("workers", cfg.Workers)
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	// DEFECTSET_STORAGE_TYPE -> storage.type
	v.SetEnvPrefix("DEFECTSET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".defectset")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".defectset"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file) // existing variables win
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".defectset", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the conventional unprefixed variables
func applyEnvOverrides(cfg *Config) {
	// Precedence: 1. Env var 2. Config file 3. Keychain
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	} else if cfg.GitHub.Token == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if keychainToken, err := km.GetGitHubToken(); err == nil && keychainToken != "" {
				cfg.GitHub.Token = keychainToken
			}
		}
	}
	if rateLimit := os.Getenv("GITHUB_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.ParseFloat(rateLimit, 64); err == nil {
			cfg.GitHub.RateLimit = rate
		}
	}

	if url := os.Getenv("JIRA_BASE_URL"); url != "" {
		cfg.Jira.BaseURL = strings.TrimRight(url, "/")
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}

	cfg.Storage.LocalPath = expandPath(cfg.Storage.LocalPath)
	cfg.Cache.Path = expandPath(cfg.Cache.Path)
	cfg.Git.WorkDir = expandPath(cfg.Git.WorkDir)
	cfg.Output.Directory = expandPath(cfg.Output.Directory)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Project returns the configured project with the given key (case-insensitive)
func (c *Config) Project(key string) (ProjectConfig, bool) {
	for _, p := range c.Projects {
		if strings.EqualFold(p.Key, key) {
			return p, true
		}
	}
	return ProjectConfig{}, false
}

// Save writes the configuration as YAML. The GitHub token is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.GitHub.Token = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
