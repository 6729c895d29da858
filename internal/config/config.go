package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	S3      S3Config
	Log     LogConfig
	Sources SourcesConfig
	Compare CompareConfig
	Cache   CacheConfig
	Email   EmailConfig
	CORS    CORSConfig
}

// EmailConfig holds run notification settings.
type EmailConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Recipients  []string `mapstructure:"recipients"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SourcesConfig holds the locations of both corpora.
type SourcesConfig struct {
	WWPDBBaseURL  string `mapstructure:"wwpdb_base_url"`
	ComponentsURL string `mapstructure:"components_url"`
	GitHubRepo    string `mapstructure:"github_repo"`
	GitHubBranch  string `mapstructure:"github_branch"`
	RawBaseURL    string `mapstructure:"raw_base_url"`
	APIBaseURL    string `mapstructure:"api_base_url"`
	GraphQLURL    string `mapstructure:"graphql_url"`
	GitHubToken   string `mapstructure:"github_token"`
	TokenFile     string `mapstructure:"github_token_file"`
	UserAgent     string `mapstructure:"user_agent"`
	// Mirror selects an alternative origin for online mode. "s3" reads both
	// sets from the configured bucket.
	Mirror              string        `mapstructure:"mirror"`
	Timeout             time.Duration `mapstructure:"timeout"`
	DownloadTimeout     time.Duration `mapstructure:"download_timeout"`
	RateLimitBackoffSec int           `mapstructure:"rate_limit_backoff_secs"`
}

// CompareConfig holds comparison run settings.
type CompareConfig struct {
	CorrelationTable string `mapstructure:"correlation_table"`
	ColumnA          string `mapstructure:"column_a"`
	ColumnB          string `mapstructure:"column_b"`
	ColumnSameName   string `mapstructure:"column_same_name"`
	Workers          int    `mapstructure:"workers"`
	Set1Dir          string `mapstructure:"set1_dir"`
	Set2Dir          string `mapstructure:"set2_dir"`
	Output           string `mapstructure:"output"`
	DateBatchSize    int    `mapstructure:"date_batch_size"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	// Path of the sqlite date cache. Empty keeps dates in memory.
	Path            string `mapstructure:"path"`
	DocumentEntries int    `mapstructure:"document_entries"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for the mirror and report uploads.
type S3Config struct {
	Enabled       bool   `mapstructure:"enabled"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Set1Prefix    string `mapstructure:"set1_prefix"`
	Set2Prefix    string `mapstructure:"set2_prefix"`
	ReportPrefix  string `mapstructure:"report_prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from a .env file, if any, and environment
// variables with the CCDSYNC_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CCDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "ccdsync")
	v.SetDefault("db.password", "ccdsync_secret")
	v.SetDefault("db.name", "ccdsync_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "ccdsync")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.set1_prefix", "wwpdb/")
	v.SetDefault("s3.set2_prefix", "ccp4/")
	v.SetDefault("s3.report_prefix", "reports/")
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Source defaults
	v.SetDefault("sources.wwpdb_base_url", "https://files.wwpdb.org/pub/pdb/refdata/chem_comp/")
	v.SetDefault("sources.components_url", "https://files.wwpdb.org/pub/pdb/data/monomers/components.cif.gz")
	v.SetDefault("sources.github_repo", "MonomerLibrary/monomers")
	v.SetDefault("sources.github_branch", "master")
	v.SetDefault("sources.raw_base_url", "https://raw.githubusercontent.com")
	v.SetDefault("sources.api_base_url", "https://api.github.com")
	v.SetDefault("sources.graphql_url", "https://api.github.com/graphql")
	v.SetDefault("sources.github_token", "")
	v.SetDefault("sources.github_token_file", "github_token.txt")
	v.SetDefault("sources.user_agent", "ccdsync/1.0")
	v.SetDefault("sources.mirror", "")
	v.SetDefault("sources.timeout", "30s")
	v.SetDefault("sources.download_timeout", "300s")
	v.SetDefault("sources.rate_limit_backoff_secs", 900)

	// Compare defaults
	v.SetDefault("compare.correlation_table", "")
	v.SetDefault("compare.column_a", "wwpdbccd")
	v.SetDefault("compare.column_b", "ccp4monomerlibrary")
	v.SetDefault("compare.column_same_name", "same_name")
	v.SetDefault("compare.workers", 8)
	v.SetDefault("compare.set1_dir", "set1_files")
	v.SetDefault("compare.set2_dir", "set2_files")
	v.SetDefault("compare.output", "comparison_results.csv")
	v.SetDefault("compare.date_batch_size", 50)

	// Cache defaults
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.document_entries", 1024)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@ccdsync.local")
	v.SetDefault("email.from_name", "ccdsync")
	v.SetDefault("email.recipients", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                     "CCDSYNC_SERVER_PORT",
		"server.read_timeout":             "CCDSYNC_SERVER_READ_TIMEOUT",
		"server.write_timeout":            "CCDSYNC_SERVER_WRITE_TIMEOUT",
		"server.environment":              "CCDSYNC_SERVER_ENVIRONMENT",
		"db.enabled":                      "CCDSYNC_DB_ENABLED",
		"db.host":                         "CCDSYNC_DB_HOST",
		"db.port":                         "CCDSYNC_DB_PORT",
		"db.user":                         "CCDSYNC_DB_USER",
		"db.password":                     "CCDSYNC_DB_PASSWORD",
		"db.name":                         "CCDSYNC_DB_NAME",
		"db.sslmode":                      "CCDSYNC_DB_SSLMODE",
		"db.max_open":                     "CCDSYNC_DB_MAX_OPEN",
		"db.max_idle":                     "CCDSYNC_DB_MAX_IDLE",
		"s3.enabled":                      "CCDSYNC_S3_ENABLED",
		"s3.region":                       "CCDSYNC_S3_REGION",
		"s3.bucket":                       "CCDSYNC_S3_BUCKET",
		"s3.endpoint":                     "CCDSYNC_S3_ENDPOINT",
		"s3.access_key":                   "CCDSYNC_S3_ACCESS_KEY",
		"s3.secret_key":                   "CCDSYNC_S3_SECRET_KEY",
		"s3.set1_prefix":                  "CCDSYNC_S3_SET1_PREFIX",
		"s3.set2_prefix":                  "CCDSYNC_S3_SET2_PREFIX",
		"s3.report_prefix":                "CCDSYNC_S3_REPORT_PREFIX",
		"s3.presign_expiry":               "CCDSYNC_S3_PRESIGN_EXPIRY",
		"log.level":                       "CCDSYNC_LOG_LEVEL",
		"log.format":                      "CCDSYNC_LOG_FORMAT",
		"sources.wwpdb_base_url":          "CCDSYNC_SOURCES_WWPDB_BASE_URL",
		"sources.components_url":          "CCDSYNC_SOURCES_COMPONENTS_URL",
		"sources.github_repo":             "CCDSYNC_SOURCES_GITHUB_REPO",
		"sources.github_branch":           "CCDSYNC_SOURCES_GITHUB_BRANCH",
		"sources.raw_base_url":            "CCDSYNC_SOURCES_RAW_BASE_URL",
		"sources.api_base_url":            "CCDSYNC_SOURCES_API_BASE_URL",
		"sources.graphql_url":             "CCDSYNC_SOURCES_GRAPHQL_URL",
		"sources.github_token":            "CCDSYNC_SOURCES_GITHUB_TOKEN",
		"sources.github_token_file":       "CCDSYNC_SOURCES_GITHUB_TOKEN_FILE",
		"sources.user_agent":              "CCDSYNC_SOURCES_USER_AGENT",
		"sources.mirror":                  "CCDSYNC_SOURCES_MIRROR",
		"sources.timeout":                 "CCDSYNC_SOURCES_TIMEOUT",
		"sources.download_timeout":        "CCDSYNC_SOURCES_DOWNLOAD_TIMEOUT",
		"sources.rate_limit_backoff_secs": "CCDSYNC_SOURCES_RATE_LIMIT_BACKOFF_SECS",
		"compare.correlation_table":       "CCDSYNC_COMPARE_CORRELATION_TABLE",
		"compare.column_a":                "CCDSYNC_COMPARE_COLUMN_A",
		"compare.column_b":                "CCDSYNC_COMPARE_COLUMN_B",
		"compare.column_same_name":        "CCDSYNC_COMPARE_COLUMN_SAME_NAME",
		"compare.workers":                 "CCDSYNC_COMPARE_WORKERS",
		"compare.set1_dir":                "CCDSYNC_COMPARE_SET1_DIR",
		"compare.set2_dir":                "CCDSYNC_COMPARE_SET2_DIR",
		"compare.output":                  "CCDSYNC_COMPARE_OUTPUT",
		"compare.date_batch_size":         "CCDSYNC_COMPARE_DATE_BATCH_SIZE",
		"cache.path":                      "CCDSYNC_CACHE_PATH",
		"cache.document_entries":          "CCDSYNC_CACHE_DOCUMENT_ENTRIES",
		"cors.allowed_origins":            "CCDSYNC_CORS_ALLOWED_ORIGINS",
		"email.provider":                  "CCDSYNC_EMAIL_PROVIDER",
		"email.region":                    "CCDSYNC_EMAIL_REGION",
		"email.from_address":              "CCDSYNC_EMAIL_FROM_ADDRESS",
		"email.from_name":                 "CCDSYNC_EMAIL_FROM_NAME",
		"email.recipients":                "CCDSYNC_EMAIL_RECIPIENTS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:         v.GetString("server.port"),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Enabled:  v.GetBool("db.enabled"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Enabled:       v.GetBool("s3.enabled"),
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		Set1Prefix:    v.GetString("s3.set1_prefix"),
		Set2Prefix:    v.GetString("s3.set2_prefix"),
		ReportPrefix:  v.GetString("s3.report_prefix"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Sources = SourcesConfig{
		WWPDBBaseURL:        v.GetString("sources.wwpdb_base_url"),
		ComponentsURL:       v.GetString("sources.components_url"),
		GitHubRepo:          v.GetString("sources.github_repo"),
		GitHubBranch:        v.GetString("sources.github_branch"),
		RawBaseURL:          v.GetString("sources.raw_base_url"),
		APIBaseURL:          v.GetString("sources.api_base_url"),
		GraphQLURL:          v.GetString("sources.graphql_url"),
		GitHubToken:         v.GetString("sources.github_token"),
		TokenFile:           v.GetString("sources.github_token_file"),
		UserAgent:           v.GetString("sources.user_agent"),
		Mirror:              v.GetString("sources.mirror"),
		Timeout:             v.GetDuration("sources.timeout"),
		DownloadTimeout:     v.GetDuration("sources.download_timeout"),
		RateLimitBackoffSec: v.GetInt("sources.rate_limit_backoff_secs"),
	}
	if cfg.Sources.GitHubToken == "" && cfg.Sources.TokenFile != "" {
		cfg.Sources.GitHubToken = readTokenFile(cfg.Sources.TokenFile)
	}
	cfg.Compare = CompareConfig{
		CorrelationTable: v.GetString("compare.correlation_table"),
		ColumnA:          v.GetString("compare.column_a"),
		ColumnB:          v.GetString("compare.column_b"),
		ColumnSameName:   v.GetString("compare.column_same_name"),
		Workers:          v.GetInt("compare.workers"),
		Set1Dir:          v.GetString("compare.set1_dir"),
		Set2Dir:          v.GetString("compare.set2_dir"),
		Output:           v.GetString("compare.output"),
		DateBatchSize:    v.GetInt("compare.date_batch_size"),
	}
	cfg.Cache = CacheConfig{
		Path:            v.GetString("cache.path"),
		DocumentEntries: v.GetInt("cache.document_entries"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		Recipients:  splitList(v.GetString("email.recipients")),
	}

	return cfg, nil
}

// readTokenFile returns the trimmed contents of path, or "" when unreadable.
func readTokenFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("config.Load: could not read %s: %v", path, err)
		}
		return ""
	}
	token := strings.TrimSpace(string(data))
	if token != "" {
		log.Printf("config.Load: using GitHub token from %s", path)
	}
	return token
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
