package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string

	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string
	JWTSecret  string

	AIProvider      string
	OpenAIAPIKey    string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	OllamaURL       string
	OllamaModel     string
	PromptsFile     string

	AlchemyAPIKey      string
	AlchemyNetwork     string
	ChainID            int64
	AdminPrivateKey    string
	WalletArtifactPath string
	DefaultDailyLimit  string
	InitialGasFund     string

	StorageBackend      string
	MinIOEndpoint       string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOBucket         string
	MinIOUseSSL         bool
	WalletEncryptionKey string

	StateCacheTTL   time.Duration
	RefreshInterval time.Duration
	RefreshMaxTicks int
	TxWaitTimeout   time.Duration
}

func LoadConfig() Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	return Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8000"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", ""),
		SQLitePath: getEnv("SQLITE_PATH", "./data/aiwallet.db"),
		JWTSecret:  getEnv("JWT_SECRET", ""),

		AIProvider:      strings.ToLower(getEnv("AI_PROVIDER", "openai")),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-pro"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434/api"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3:8b"),
		PromptsFile:     getEnv("PROMPTS_FILE", ""),

		AlchemyAPIKey:      getEnv("ALCHEMY_API_KEY", ""),
		AlchemyNetwork:     getEnv("ALCHEMY_NETWORK", "eth-sepolia"),
		ChainID:            int64(getEnvInt("CHAIN_ID", 11155111)),
		AdminPrivateKey:    getEnv("ADMIN_PRIVATE_KEY", ""),
		WalletArtifactPath: getEnv("WALLET_ARTIFACT_PATH", "./artifacts/AIAgentWallet.json"),
		DefaultDailyLimit:  getEnv("DEFAULT_DAILY_LIMIT", "0.1"),
		InitialGasFund:     getEnv("INITIAL_GAS_FUND", "0"),

		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", "db")),
		MinIOEndpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:      getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:         getEnv("MINIO_BUCKET", "aiwallet"),
		MinIOUseSSL:         getEnvBool("MINIO_USE_SSL", false),
		WalletEncryptionKey: getEnv("WALLET_ENCRYPTION_KEY", ""),

		StateCacheTTL:   getEnvDuration("STATE_CACHE_TTL", 5*time.Minute),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 12*time.Second),
		RefreshMaxTicks: getEnvInt("REFRESH_MAX_TICKS", 50),
		TxWaitTimeout:   getEnvDuration("TX_WAIT_TIMEOUT", 3*time.Minute),
	}
}

// Validate only checks that required values are present.
func (c Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is not set", name))
		}
	}

	require("JWT_SECRET", c.JWTSecret)
	require("ALCHEMY_API_KEY", c.AlchemyAPIKey)

	switch c.AIProvider {
	case "openai":
		require("OPENAI_API_KEY", c.OpenAIAPIKey)
	case "gemini":
		require("GEMINI_API_KEY", c.GeminiAPIKey)
	case "anthropic":
		require("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	case "ollama":
		require("OLLAMA_URL", c.OllamaURL)
	default:
		errs = append(errs, fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider))
	}

	switch c.DBDriver {
	case "postgres":
		require("DB_HOST", c.DBHost)
		require("DB_USER", c.DBUser)
		require("DB_NAME", c.DBName)
	case "sqlite":
		require("SQLITE_PATH", c.SQLitePath)
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}

	switch c.StorageBackend {
	case "db", "memory":
	case "minio":
		require("MINIO_ENDPOINT", c.MinIOEndpoint)
		require("MINIO_ACCESS_KEY", c.MinIOAccessKey)
		require("MINIO_SECRET_KEY", c.MinIOSecretKey)
		require("MINIO_BUCKET", c.MinIOBucket)
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	return errors.Join(errs...)
}

// RPCURL is the Alchemy JSON-RPC endpoint for the configured network.
func (c Config) RPCURL() string {
	return RPCURLFor(c.AlchemyNetwork, c.AlchemyAPIKey)
}

func RPCURLFor(network, apiKey string) string {
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", network, apiKey)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
