package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, siliconflow, openrouter, ollama) use the same config.
	LLMProvider string // Provider identifier
	LLMAPIKey   string // Unified LLM API key
	LLMBaseURL  string // Unified LLM base URL (optional, has default per provider)
	LLMModel    string // Model name
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Embedding configuration (semantic routing history)
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string

	// Intent classifier configuration (lightweight model for classification)
	IntentModel   string
	IntentAPIKey  string
	IntentBaseURL string

	// Wearable vendor integration (OAuth2 client credentials)
	WearableTokenURL     string
	WearableClientID     string
	WearableClientSecret string
	WearableBaseURL      string

	// Budget alert channel
	TelegramBotToken string
	TelegramChatID   int64

	// Auth
	Secret     string // HS256 signing secret for bearer tokens
	APIKeyHash string // bcrypt hash of the static service API key (optional)

	// Agent persona configuration directory
	AgentConfigDir string

	// Server
	Mode        string
	Addr        string
	Port        int
	UNIXSock    string
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
}

// Provider default configurations for the LLM.
// Used when NGX_AI_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
// Without it the server still starts, but agent execution degrades to
// canned fallback responses.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("NGX_AI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("NGX_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("NGX_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("NGX_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("NGX_AI_LLM_TIMEOUT_SECONDS", 120)

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	// Embedding configuration
	p.EmbeddingProvider = getEnvOrDefault("NGX_AI_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("NGX_AI_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingAPIKey = getEnvOrDefault("NGX_AI_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("NGX_AI_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")

	// Intent classifier configuration
	p.IntentModel = getEnvOrDefault("NGX_AI_INTENT_MODEL", "Qwen/Qwen2.5-7B-Instruct")
	p.IntentAPIKey = getEnvOrDefault("NGX_AI_INTENT_API_KEY", "")
	p.IntentBaseURL = getEnvOrDefault("NGX_AI_INTENT_BASE_URL", "https://api.siliconflow.cn/v1")

	// Wearable vendor integration
	p.WearableTokenURL = getEnvOrDefault("NGX_WEARABLE_TOKEN_URL", "")
	p.WearableClientID = getEnvOrDefault("NGX_WEARABLE_CLIENT_ID", "")
	p.WearableClientSecret = getEnvOrDefault("NGX_WEARABLE_CLIENT_SECRET", "")
	p.WearableBaseURL = getEnvOrDefault("NGX_WEARABLE_BASE_URL", "")

	// Telegram budget alerts
	p.TelegramBotToken = getEnvOrDefault("NGX_TELEGRAM_BOT_TOKEN", "")
	if v := os.Getenv("NGX_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.TelegramChatID = id
		}
	}

	p.Secret = getEnvOrDefault("NGX_SECRET", "")
	p.APIKeyHash = getEnvOrDefault("NGX_API_KEY_HASH", "")
	p.AgentConfigDir = getEnvOrDefault("NGX_AGENT_CONFIG_DIR", "./config/agents")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("ngx_agents_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile) + "?_loc=auto"
	}

	return nil
}
