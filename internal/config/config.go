package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"entitymatch/internal/tfidf"
)

// CSVConfig configures the CSV directory dataset provider.
type CSVConfig struct {
	Dir string `yaml:"dir"`
}

// SQLiteConfig configures the SQLite dataset provider.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// DatasetConfig selects where tables are read from and written to.
type DatasetConfig struct {
	Type   string        `yaml:"type"`
	CSV    *CSVConfig    `yaml:"csv,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// TablesConfig names the tables used by the index and match steps.
type TablesConfig struct {
	Master     string `yaml:"master"`
	Candidates string `yaml:"candidates"`
	Index      string `yaml:"index"`
	Results    string `yaml:"results"`
}

// ColumnsConfig names the id and text columns of the input tables.
type ColumnsConfig struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// LocalBlobConfig configures the local directory blob store.
type LocalBlobConfig struct {
	Dir string `yaml:"dir"`
}

// S3Config contains connection details for an S3 bucket.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// MinIOConfig contains connection details for a MinIO bucket.
type MinIOConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// ArtifactsConfig controls persistence of the fitted vectorizer and matrix.
type ArtifactsConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Store       string           `yaml:"store"`
	Prefix      string           `yaml:"prefix"`
	Compression string           `yaml:"compression"`
	Local       *LocalBlobConfig `yaml:"local,omitempty"`
	S3          *S3Config        `yaml:"s3,omitempty"`
	MinIO       *MinIOConfig     `yaml:"minio,omitempty"`
}

// MatcherConfig tunes the match step.
type MatcherConfig struct {
	// Source is the table matched against: "index" or "master".
	Source string `yaml:"source"`
	// ReuseArtifacts loads the persisted vectorizer and matrix instead of refitting.
	ReuseArtifacts bool `yaml:"reuse_artifacts"`
	Workers        int  `yaml:"workers"`
	BatchSize      int  `yaml:"batch_size"`
	TopK           int  `yaml:"top_k"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Dataset    DatasetConfig   `yaml:"dataset"`
	Tables     TablesConfig    `yaml:"tables"`
	Columns    ColumnsConfig   `yaml:"columns"`
	Vectorizer tfidf.Options   `yaml:"vectorizer"`
	Matcher    MatcherConfig   `yaml:"matcher"`
	Artifacts  ArtifactsConfig `yaml:"artifacts"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault tries ./entitymatch.yaml first, then ~/.config/entitymatch/config.yaml.
// If neither exists, it writes defaults to ~/.config/entitymatch/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "entitymatch.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

// DefaultUserConfigPath returns ~/.config/entitymatch/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "entitymatch", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Dataset: DatasetConfig{Type: "csv", CSV: &CSVConfig{Dir: "data"}},
		Tables: TablesConfig{
			Master:     "master_data",
			Candidates: "candidate_data",
			Index:      "index",
			Results:    "entity_match_results",
		},
		Columns:    ColumnsConfig{ID: "id", Text: "text"},
		Vectorizer: tfidf.DefaultOptions(),
		Matcher:    MatcherConfig{Source: "index", Workers: 1, BatchSize: 256, TopK: 10},
		Artifacts: ArtifactsConfig{
			Enabled:     true,
			Store:       "local",
			Prefix:      "model_data",
			Compression: "zstd",
			Local:       &LocalBlobConfig{Dir: "artifacts"},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Dataset.Type == "" {
		cfg.Dataset.Type = "csv"
	}
	if cfg.Dataset.Type == "csv" && cfg.Dataset.CSV == nil {
		cfg.Dataset.CSV = &CSVConfig{Dir: "data"}
	}
	if cfg.Dataset.Type == "sqlite" && cfg.Dataset.SQLite == nil {
		cfg.Dataset.SQLite = &SQLiteConfig{Path: "warehouse.db"}
	}
	if cfg.Columns.ID == "" {
		cfg.Columns.ID = "id"
	}
	if cfg.Columns.Text == "" {
		cfg.Columns.Text = "text"
	}
	if cfg.Vectorizer.NGramSize <= 0 {
		cfg.Vectorizer.NGramSize = 3
	}
	if cfg.Vectorizer.MinDF <= 0 {
		cfg.Vectorizer.MinDF = 1
	}
	if cfg.Matcher.Source == "" {
		cfg.Matcher.Source = "index"
	}
	if cfg.Matcher.Workers <= 0 {
		cfg.Matcher.Workers = 1
	}
	if cfg.Matcher.BatchSize <= 0 {
		cfg.Matcher.BatchSize = 256
	}
	if cfg.Matcher.TopK <= 0 {
		cfg.Matcher.TopK = 10
	}
	if cfg.Artifacts.Store == "" {
		cfg.Artifacts.Store = "local"
	}
	if cfg.Artifacts.Store == "local" && cfg.Artifacts.Local == nil {
		cfg.Artifacts.Local = &LocalBlobConfig{Dir: "artifacts"}
	}
	if cfg.Artifacts.Store == "minio" && cfg.Artifacts.MinIO != nil {
		if cfg.Artifacts.MinIO.AccessKeyEnv == "" {
			cfg.Artifacts.MinIO.AccessKeyEnv = "MINIO_ACCESS_KEY"
		}
		if cfg.Artifacts.MinIO.SecretKeyEnv == "" {
			cfg.Artifacts.MinIO.SecretKeyEnv = "MINIO_SECRET_KEY"
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// applyEnvOverrides lets ENTITYMATCH_* variables override file settings.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("ENTITYMATCH_DATASET_TYPE"); v != "" {
		cfg.Dataset.Type = v
	}
	if v := os.Getenv("ENTITYMATCH_CSV_DIR"); v != "" {
		cfg.Dataset.CSV = &CSVConfig{Dir: v}
	}
	if v := os.Getenv("ENTITYMATCH_SQLITE_PATH"); v != "" {
		cfg.Dataset.SQLite = &SQLiteConfig{Path: v}
	}
	if v := os.Getenv("ENTITYMATCH_ARTIFACT_STORE"); v != "" {
		cfg.Artifacts.Store = v
	}
	if v := os.Getenv("ENTITYMATCH_ARTIFACTS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Artifacts.Enabled = b
		}
	}
	if v := os.Getenv("ENTITYMATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Matcher.Workers = n
		}
	}
	if v := os.Getenv("ENTITYMATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	applyConfigDefaults(cfg)
}
