package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob the engine needs. Defaults are safe for a
// keyless offline run; API keys arrive via the environment.
type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	LLMProvider string `json:"llm_provider"`
	Model       string `json:"model"`
	BackendURL  string `json:"backend_url"`

	OpenAIAPIKey   string `json:"-"`
	DeepSeekAPIKey string `json:"-"`
	FinnhubAPIKey  string `json:"-"`
	VideoAPIKey    string `json:"-"`

	LongportAppKey      string `json:"-"`
	LongportAppSecret   string `json:"-"`
	LongportAccessToken string `json:"-"`

	FilingsBaseURL string `json:"filings_base_url"`
	VideoBaseURL   string `json:"video_base_url"`

	// Pipeline controls.
	MaxConcurrentStages int           `json:"max_concurrent_stages"`
	ConfidenceThreshold float64       `json:"confidence_threshold"`
	MaxStageRetries     int           `json:"max_stage_retries"`
	PipelineTimeout     time.Duration `json:"pipeline_timeout"`
	CollectTimeout      time.Duration `json:"collect_timeout"`
	StageTimeout        time.Duration `json:"stage_timeout"`
	LLMTimeout          time.Duration `json:"llm_timeout"`

	CacheEnabled bool   `json:"cache_enabled"`
	LogLevel     string `json:"log_level"`
}

// ConfigError rejects an unusable configuration at startup. Like
// request validation, it is surfaced to the caller; nothing else is.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	return &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		LLMProvider: "openai",
		Model:       "gpt-4o-mini",
		BackendURL:  "https://api.openai.com/v1",

		FilingsBaseURL: "https://data.sec.gov",
		VideoBaseURL:   "https://www.googleapis.com/youtube/v3",

		MaxConcurrentStages: 5,
		ConfidenceThreshold: 0.7,
		MaxStageRetries:     1,
		PipelineTimeout:     120 * time.Second,
		CollectTimeout:      60 * time.Second,
		StageTimeout:        30 * time.Second,
		LLMTimeout:          45 * time.Second,

		CacheEnabled: true,
		LogLevel:     "info",
	}
}

// Load builds the config from defaults plus environment overrides. A
// .env file in the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("DEEPSTOCK_LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	if v := os.Getenv("DEEPSTOCK_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("DEEPSTOCK_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.DeepSeekAPIKey = os.Getenv("DEEPSEEK_API_KEY")
	cfg.FinnhubAPIKey = os.Getenv("FINNHUB_API_KEY")
	cfg.VideoAPIKey = os.Getenv("VIDEO_API_KEY")
	cfg.LongportAppKey = os.Getenv("LONGPORT_APP_KEY")
	cfg.LongportAppSecret = os.Getenv("LONGPORT_APP_SECRET")
	cfg.LongportAccessToken = os.Getenv("LONGPORT_ACCESS_TOKEN")

	if v := os.Getenv("DEEPSTOCK_RESULTS_DIR"); v != "" {
		cfg.ResultsDir = v
	}
	if v := os.Getenv("DEEPSTOCK_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("DEEPSTOCK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DEEPSTOCK_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentStages = n
		}
	}
	if v := os.Getenv("DEEPSTOCK_PIPELINE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PipelineTimeout = d
		}
	}

	return cfg
}

// Validate checks the pipeline controls. Provider keys are allowed to
// be absent: the engine degrades instead of refusing to start.
func (c *Config) Validate() error {
	if c.MaxConcurrentStages < 1 {
		return &ConfigError{Field: "max_concurrent_stages", Reason: "must be at least 1"}
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return &ConfigError{Field: "confidence_threshold", Reason: "must be in [0,1]"}
	}
	if c.MaxStageRetries < 0 {
		return &ConfigError{Field: "max_stage_retries", Reason: "must be non-negative"}
	}
	if c.PipelineTimeout <= 0 || c.StageTimeout <= 0 || c.CollectTimeout <= 0 {
		return &ConfigError{Field: "timeouts", Reason: "must be positive"}
	}
	if c.CollectTimeout > c.PipelineTimeout {
		return &ConfigError{Field: "collect_timeout", Reason: "exceeds pipeline timeout"}
	}
	switch c.LLMProvider {
	case "", "openai", "deepseek", "none":
	default:
		return &ConfigError{Field: "llm_provider", Reason: fmt.Sprintf("unknown provider %q", c.LLMProvider)}
	}
	return nil
}

// EnsureDirectories creates the results and cache trees.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ResultsDir, c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
