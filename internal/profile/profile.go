package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main service.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (openai, deepseek, siliconflow, ollama) use the same config
	LLMProvider string // Provider identifier: openai, deepseek, siliconflow, openrouter, ollama
	LLMAPIKey   string // Unified LLM API key
	LLMBaseURL  string // Unified LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-4o, deepseek-chat, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Embedding configuration
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Chat frontend configuration
	TelegramBotToken     string
	PaymentProviderToken string

	// Companion behavior knobs
	TrialMinutes    int    // Length of the free trial window
	HistoryLimit    int    // Recent turns included in the prompt context
	MemoryK         int    // Long-term memories retrieved per turn
	ExemplarK       int    // Learned exemplars retrieved per situation
	DefaultLanguage string // Fallback reply language when detection is inconclusive

	// Background worker cadence
	ConsolidationIntervalSec int // How often the consolidation sweep runs
	ConsolidationGapMinutes  int // Idle gap before a conversation is consolidated
	ConsolidationMinTurns    int // Minimum unconsolidated turns worth summarizing
	ReengageIntervalSec      int // How often the re-engagement sweep runs

	// Other configurations
	Mode    string
	DSN     string
	Driver  string
	Version string
	Addr    string
	Data    string
	Port    int
}

// Provider default configurations for LLM.
// Used when KOKORO_AI_LLM_BASE_URL is not explicitly set.
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
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
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
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("KOKORO_AI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("KOKORO_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("KOKORO_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("KOKORO_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("KOKORO_AI_LLM_TIMEOUT_SECONDS", 120)

	// Validate and apply provider defaults if not explicitly set
	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	// Embedding configuration
	p.EmbeddingProvider = getEnvOrDefault("KOKORO_AI_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("KOKORO_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = getEnvOrDefault("KOKORO_AI_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("KOKORO_AI_EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	p.EmbeddingDimensions = getEnvOrDefaultInt("KOKORO_AI_EMBEDDING_DIMENSIONS", 1536)

	// Chat frontend configuration
	p.TelegramBotToken = getEnvOrDefault("KOKORO_TELEGRAM_BOT_TOKEN", "")
	p.PaymentProviderToken = getEnvOrDefault("KOKORO_PAYMENT_PROVIDER_TOKEN", "")

	// Companion behavior knobs
	p.TrialMinutes = getEnvOrDefaultInt("KOKORO_TRIAL_MINUTES", 30)
	p.HistoryLimit = getEnvOrDefaultInt("KOKORO_HISTORY_LIMIT", 10)
	p.MemoryK = getEnvOrDefaultInt("KOKORO_MEMORY_K", 3)
	p.ExemplarK = getEnvOrDefaultInt("KOKORO_EXEMPLAR_K", 2)
	p.DefaultLanguage = getEnvOrDefault("KOKORO_DEFAULT_LANGUAGE", "en")

	// Background worker cadence
	p.ConsolidationIntervalSec = getEnvOrDefaultInt("KOKORO_CONSOLIDATION_INTERVAL_SECONDS", 300)
	p.ConsolidationGapMinutes = getEnvOrDefaultInt("KOKORO_CONSOLIDATION_GAP_MINUTES", 30)
	p.ConsolidationMinTurns = getEnvOrDefaultInt("KOKORO_CONSOLIDATION_MIN_TURNS", 4)
	p.ReengageIntervalSec = getEnvOrDefaultInt("KOKORO_REENGAGE_INTERVAL_SECONDS", 3600)
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

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "kokoro")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/kokoro"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("kokoro_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.TrialMinutes <= 0 {
		return errors.Errorf("trial minutes must be positive, got %d", p.TrialMinutes)
	}
	if p.EmbeddingDimensions <= 0 {
		return errors.Errorf("embedding dimensions must be positive, got %d", p.EmbeddingDimensions)
	}

	return nil
}
