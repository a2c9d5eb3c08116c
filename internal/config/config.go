package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	Store      StoreConfig
	AI         AIConfig
	Recognizer RecognizerConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Auth:       auth,
		Store:      loadStoreConfig(),
		AI:         ai,
		Recognizer: loadRecognizerConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	Secret      string
	TokenTTLMin int
}

func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("AUTH_SECRET"))
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("AUTH_SECRET is required")
	}

	ttl := 24 * 60
	if override, err := parseOptionalIntEnv("AUTH_TOKEN_TTL_MINUTES"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AuthConfig{}, fmt.Errorf("AUTH_TOKEN_TTL_MINUTES must be positive")
		}
		ttl = *override
	}

	return AuthConfig{Secret: secret, TokenTTLMin: ttl}, nil
}

// StoreConfig locates the sqlite database file.
type StoreConfig struct {
	Path string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{Path: getEnvOrDefault("STORE_PATH", "companion.db")}
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	HistoryLimit int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing, provide ARK_API_KEY + ARK_MODEL or AK/SK")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			historyLimit = 1
		} else {
			historyLimit = *override
		}
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		HistoryLimit: historyLimit,
	}, nil
}

// RecognizerConfig 描述外部语音识别服务配置。
type RecognizerConfig struct {
	Endpoint string
	APIKey   string
	Timeout  int
	Enabled  bool
}

func loadRecognizerConfig() RecognizerConfig {
	endpoint := strings.TrimSpace(os.Getenv("RECOGNIZER_ENDPOINT"))

	timeout := 30
	if override, err := parseOptionalIntEnv("RECOGNIZER_TIMEOUT"); err == nil && override != nil {
		timeout = *override
	}

	return RecognizerConfig{
		Endpoint: endpoint,
		APIKey:   strings.TrimSpace(os.Getenv("RECOGNIZER_API_KEY")),
		Timeout:  timeout,
		Enabled:  endpoint != "",
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
