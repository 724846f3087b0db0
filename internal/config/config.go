// Package config provides centralized configuration management
// for the Proxmox NLI application. It supports loading from
// YAML files, .env files, environment variables, and AWS Secrets
// Manager (for Lambda).
package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Proxmox     ProxmoxConfig     `yaml:"proxmox"`
	Credentials CredentialsConfig `yaml:"proxmox_credentials"`
	Cache       CacheConfig       `yaml:"cache"`
	Session     SessionConfig     `yaml:"session"`
	History     HistoryConfig     `yaml:"history"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ProxmoxConfig holds Proxmox VE API settings
type ProxmoxConfig struct {
	APIURL      string        `yaml:"api_url"`
	TokenID     string        `yaml:"token_id"`
	TokenSecret string        `yaml:"token_secret"`
	VerifyTLS   bool          `yaml:"verify_tls"`
	DefaultNode string        `yaml:"default_node"`
	Backend     string        `yaml:"backend"` // api or sim
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// CredentialsConfig holds Proxmox credentials from the proxmox_credentials
// section. This is a separate section so the token can live in a file that
// stays out of version control.
type CredentialsConfig struct {
	APIURL      string `yaml:"api_url"`
	TokenID     string `yaml:"token_id"`
	TokenSecret string `yaml:"token_secret"`
}

// CacheConfig holds API response cache settings
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// SessionConfig holds conversation session settings
type SessionConfig struct {
	Backend string        `yaml:"backend"` // memory, redis or auto
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the session store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// HistoryConfig holds command history settings
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Dir          string `yaml:"dir"`
	LambdaDir    string `yaml:"lambda_dir"`
	DefaultLimit int    `yaml:"default_limit"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	EnableFile  bool   `yaml:"enable_file"`
	EnableJSON  bool   `yaml:"enable_json"`
	EnableColor bool   `yaml:"enable_color"`
	LogDir      string `yaml:"log_dir"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Proxmox: ProxmoxConfig{
			APIURL:      "https://localhost:8006",
			VerifyTLS:   false, // Proxmox ships with a self-signed cert
			Backend:     "api",
			HTTPTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             60 * time.Second,
			CleanupInterval: 10 * time.Minute,
		},
		Session: SessionConfig{
			Backend: "auto",
			TTL:     30 * time.Minute,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				DB:   0,
			},
		},
		History: HistoryConfig{
			Enabled:      true,
			Dir:          "data/history",
			LambdaDir:    "/tmp/proxmox-nli-history",
			DefaultLimit: 20,
		},
		Logging: LoggingConfig{
			Level:       "info",
			EnableFile:  true,
			EnableJSON:  false,
			EnableColor: true,
			LogDir:      "logs",
		},
	}
}

// Get returns the global configuration (singleton)
func Get() *Config {
	configOnce.Do(func() {
		globalConfig = DefaultConfig()
		loadDotEnv()
		loadConfigFile()
		loadEnvOverrides()
	})
	return globalConfig
}

// Reload reloads the configuration from file
func Reload() error {
	configMu.Lock()
	defer configMu.Unlock()

	globalConfig = DefaultConfig()
	loadDotEnv()
	loadConfigFile()
	loadEnvOverrides()
	return nil
}

// loadDotEnv populates the process environment from a .env file when one
// exists next to the working directory or the executable.
func loadDotEnv() {
	paths := []string{
		".env",
		filepath.Join(getExecutableDir(), ".env"),
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// loadConfigFile loads configuration from config.yaml
func loadConfigFile() {
	// Try multiple paths for config file
	paths := []string{
		"config.yaml",
		"config.yml",
		filepath.Join(getExecutableDir(), "config.yaml"),
		filepath.Join(getExecutableDir(), "config.yml"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := yaml.Unmarshal(data, globalConfig); err != nil {
			continue
		}
		break
	}

	// Load API credentials from separate file (proxmox-credentials.yaml)
	loadCredentialsFile()

	// Merge proxmox_credentials into Proxmox config (if present)
	mergeCredentials()
}

// loadCredentialsFile loads the API token from proxmox-credentials.yaml
func loadCredentialsFile() {
	paths := []string{
		"proxmox-credentials.yaml",
		"proxmox-credentials.yml",
		filepath.Join(getExecutableDir(), "proxmox-credentials.yaml"),
		filepath.Join(getExecutableDir(), "proxmox-credentials.yml"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		// Parse into a temporary struct to extract just proxmox_credentials
		var credsOnly struct {
			Credentials CredentialsConfig `yaml:"proxmox_credentials"`
		}
		if err := yaml.Unmarshal(data, &credsOnly); err != nil {
			continue
		}

		// Merge into global config
		if credsOnly.Credentials.TokenID != "" {
			globalConfig.Credentials = credsOnly.Credentials
		}
		return
	}
}

// mergeCredentials copies values from the proxmox_credentials section into
// the Proxmox config
func mergeCredentials() {
	creds := globalConfig.Credentials
	if creds.APIURL != "" {
		globalConfig.Proxmox.APIURL = creds.APIURL
	}
	if creds.TokenID != "" {
		globalConfig.Proxmox.TokenID = creds.TokenID
	}
	if creds.TokenSecret != "" {
		globalConfig.Proxmox.TokenSecret = creds.TokenSecret
	}
}

// loadEnvOverrides applies environment variable overrides
func loadEnvOverrides() {
	// Server port
	if port := os.Getenv("PROXMOX_NLI_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			globalConfig.Server.Port = p
		}
	}

	// Proxmox API connection
	if url := os.Getenv("PROXMOX_API_URL"); url != "" {
		globalConfig.Proxmox.APIURL = url
	}
	if tokenID := os.Getenv("PROXMOX_TOKEN_ID"); tokenID != "" {
		globalConfig.Proxmox.TokenID = tokenID
	}
	if secret := os.Getenv("PROXMOX_TOKEN_SECRET"); secret != "" {
		globalConfig.Proxmox.TokenSecret = secret
	}
	if verify := os.Getenv("PROXMOX_VERIFY_TLS"); verify != "" {
		globalConfig.Proxmox.VerifyTLS = strings.EqualFold(verify, "true") || verify == "1"
	}
	if node := os.Getenv("PROXMOX_DEFAULT_NODE"); node != "" {
		globalConfig.Proxmox.DefaultNode = node
	}
	if backend := os.Getenv("PROXMOX_NLI_BACKEND"); backend != "" {
		globalConfig.Proxmox.Backend = backend
	}

	// Cache TTL
	if ttl := os.Getenv("PROXMOX_NLI_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			globalConfig.Cache.TTL = d
		}
	}

	// Session backend and Redis connection
	if backend := os.Getenv("PROXMOX_NLI_SESSION_BACKEND"); backend != "" {
		globalConfig.Session.Backend = backend
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		globalConfig.Session.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		globalConfig.Session.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			globalConfig.Session.Redis.DB = n
		}
	}

	// History location
	if dir := os.Getenv("PROXMOX_NLI_HISTORY_DIR"); dir != "" {
		globalConfig.History.Dir = dir
	}

	// Log level
	if level := os.Getenv("PROXMOX_NLI_LOG_LEVEL"); level != "" {
		globalConfig.Logging.Level = level
	}

	// Lambda detection - adjust settings for Lambda environment
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		globalConfig.Logging.EnableFile = false
		globalConfig.Logging.EnableColor = false
		globalConfig.History.Dir = globalConfig.History.LambdaDir
		globalConfig.Session.Backend = "memory"

		// Load the API token from AWS Secrets Manager in Lambda
		loadCredsFromSecretsManager()
	}
}

// SecretsManagerPayload represents the secret structure in AWS Secrets Manager
type SecretsManagerPayload struct {
	APIURL      string `json:"PROXMOX_API_URL"`
	TokenID     string `json:"PROXMOX_TOKEN_ID"`
	TokenSecret string `json:"PROXMOX_TOKEN_SECRET"`
}

// loadCredsFromSecretsManager loads the Proxmox API token from AWS Secrets
// Manager. This is only called when running in Lambda.
func loadCredsFromSecretsManager() {
	secretName := os.Getenv("PROXMOX_NLI_SECRET_NAME")
	if secretName == "" {
		secretName = "proxmox-nli/api-credentials" // Default secret name
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Load AWS config (uses Lambda's IAM role automatically)
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		// Silently fail - API access stays unconfigured
		return
	}

	client := secretsmanager.NewFromConfig(cfg)

	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretName,
	})
	if err != nil {
		// Silently fail - API access stays unconfigured
		return
	}

	if result.SecretString == nil {
		return
	}

	var payload SecretsManagerPayload
	if err := json.Unmarshal([]byte(*result.SecretString), &payload); err != nil {
		return
	}

	// Apply credentials to config
	if payload.APIURL != "" {
		globalConfig.Proxmox.APIURL = payload.APIURL
	}
	if payload.TokenID != "" {
		globalConfig.Proxmox.TokenID = payload.TokenID
	}
	if payload.TokenSecret != "" {
		globalConfig.Proxmox.TokenSecret = payload.TokenSecret
	}
}

// getExecutableDir returns the directory containing the executable
func getExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// IsLambda returns true if running in AWS Lambda
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// HasCredentials reports whether an API token is configured. Without one
// the factory falls back to the simulated cluster.
func (c *Config) HasCredentials() bool {
	return c.Proxmox.APIURL != "" && c.Proxmox.TokenID != "" && c.Proxmox.TokenSecret != ""
}

// HistoryPath returns the directory the history store should use
func HistoryPath() string {
	if IsLambda() {
		return Get().History.LambdaDir
	}
	return Get().History.Dir
}
