package models

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Preprocessing strategies
const (
	StrategyOtsu   = "otsu"
	StrategyInvert = "invert"
)

// Recognition backends
const (
	BackendOCR    = "ocr"
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
	BackendAI     = "ai" // resolves to AIConfig.DefaultProvider
)

// Config represents the service configuration
type Config struct {
	// Server config
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// Drawing surface
	Canvas CanvasConfig `yaml:"canvas"`

	// Pipeline stages
	Preprocess  PreprocessConfig  `yaml:"preprocess"`
	Recognition RecognitionConfig `yaml:"recognition"`
	OCR         OCRConfig         `yaml:"ocr"`
	Normalize   NormalizeConfig   `yaml:"normalize"`
	Solver      SolverConfig      `yaml:"solver"`

	// AI config
	AI AIConfig `yaml:"ai"`

	// Live sessions kept by the HTTP server and the bot
	Sessions SessionsConfig `yaml:"sessions"`

	// Transports
	Telegram TelegramConfig `yaml:"telegram"`
}

// CanvasConfig describes the drawing surface
type CanvasConfig struct {
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	PenWidth       float64 `yaml:"pen_width"`
	ShowGuideLines bool    `yaml:"show_guide_lines"`
	GuideSpacing   float64 `yaml:"guide_spacing"`
}

// PreprocessConfig selects the image preprocessing strategy
type PreprocessConfig struct {
	Strategy string `yaml:"strategy"` // "otsu" or "invert"
	Scale    int    `yaml:"scale"`    // 0 = strategy default
}

// RecognitionConfig selects and bounds the recognition backend
type RecognitionConfig struct {
	Backend        string  `yaml:"backend"` // "ocr", "gemini", "openai", "ollama"
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MinConfidence  float64 `yaml:"min_confidence"` // 0 = no minimum
}

// Timeout returns the recognition timeout as a duration
func (r RecognitionConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	Language      string `yaml:"language"`       // OCR language (default: "eng")
	CharWhitelist string `yaml:"char_whitelist"` // restrict recognized characters
	PageSegMode   int    `yaml:"page_seg_mode"`  // tesseract PSM, default single line
}

// NormalizeConfig chooses the rewrite policy
type NormalizeConfig struct {
	EquationAware      bool `yaml:"equation_aware"`       // also map T/t -> + and Eq -> =
	SplitFunctionNames bool `yaml:"split_function_names"` // treat sin, cos, log... as plain letters
}

// SolverConfig bounds the numeric root search
type SolverConfig struct {
	ScanMin   float64 `yaml:"scan_min"`
	ScanMax   float64 `yaml:"scan_max"`
	ScanSteps int     `yaml:"scan_steps"`
	MaxRoots  int     `yaml:"max_roots"`
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Gemini GeminiConfig `yaml:"gemini"`
	Ollama OllamaConfig `yaml:"ollama"`

	// Default provider used when the recognition backend is "ai"
	DefaultProvider string `yaml:"default_provider"` // "openai", "gemini", "ollama"
	Prompt          string `yaml:"prompt,omitempty"`
}

// OpenAIConfig for OpenAI and compatible endpoints
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// OllamaConfig for local Ollama
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// SessionsConfig bounds the live session table
type SessionsConfig struct {
	MaxSessions int `yaml:"max_sessions"`
	IdleMinutes int `yaml:"idle_minutes"`
}

// TelegramConfig for the bot transport
type TelegramConfig struct {
	Token string `yaml:"token"`
	Debug bool   `yaml:"debug"`
}

// DefaultConfig returns a configuration with every default applied
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values with defaults
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Canvas.Width == 0 {
		c.Canvas.Width = 800
	}
	if c.Canvas.Height == 0 {
		c.Canvas.Height = 400
	}
	if c.Canvas.PenWidth == 0 {
		c.Canvas.PenWidth = 3.5
	}
	if c.Canvas.GuideSpacing == 0 {
		c.Canvas.GuideSpacing = 50
	}
	if c.Preprocess.Strategy == "" {
		c.Preprocess.Strategy = StrategyInvert
	}
	if c.Recognition.Backend == "" {
		c.Recognition.Backend = BackendOCR
	}
	if c.Recognition.TimeoutSeconds == 0 {
		c.Recognition.TimeoutSeconds = 30
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	if c.OCR.CharWhitelist == "" {
		c.OCR.CharWhitelist = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ+-*/=^().x÷×"
	}
	if c.OCR.PageSegMode == 0 {
		c.OCR.PageSegMode = 7
	}
	if c.Solver.ScanMin == 0 && c.Solver.ScanMax == 0 {
		c.Solver.ScanMin, c.Solver.ScanMax = -100, 100
	}
	if c.Solver.ScanSteps == 0 {
		c.Solver.ScanSteps = 20000
	}
	if c.Solver.MaxRoots == 0 {
		c.Solver.MaxRoots = 16
	}
	if c.Sessions.MaxSessions == 0 {
		c.Sessions.MaxSessions = 1000
	}
	if c.Sessions.IdleMinutes == 0 {
		c.Sessions.IdleMinutes = 30
	}
	if c.AI.DefaultProvider == "" {
		c.AI.DefaultProvider = BackendGemini
	}
	if c.AI.Gemini.Model == "" {
		c.AI.Gemini.Model = "gemini-2.5-flash"
	}
	if c.AI.OpenAI.Model == "" {
		c.AI.OpenAI.Model = "gpt-4o-mini"
	}
	if c.AI.Ollama.BaseURL == "" {
		c.AI.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.AI.Ollama.Model == "" {
		c.AI.Ollama.Model = "llava"
	}
}

// LoadConfig reads a YAML config file and applies environment overrides.
// A missing file is not an error: defaults and environment still apply.
func LoadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv()
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Port = n
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		c.Host = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		c.AI.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		c.AI.Gemini.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		c.AI.Ollama.BaseURL = baseURL
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		c.AI.OpenAI.BaseURL = baseURL
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		c.AI.DefaultProvider = provider
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		c.AI.OpenAI.Model = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		c.AI.Gemini.Model = model
	}
	if backend := os.Getenv("RECOGNITION_BACKEND"); backend != "" {
		c.Recognition.Backend = backend
	}
	if strategy := os.Getenv("PREPROCESS_STRATEGY"); strategy != "" {
		c.Preprocess.Strategy = strategy
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
}

// Validate rejects unknown strategy and backend names
func (c *Config) Validate() error {
	switch c.Preprocess.Strategy {
	case StrategyOtsu, StrategyInvert:
	default:
		return NewFailure(ConfigError, fmt.Sprintf("unknown preprocessing strategy %q", c.Preprocess.Strategy))
	}
	switch c.Recognition.Backend {
	case BackendOCR, BackendGemini, BackendOpenAI, BackendOllama, BackendAI:
	default:
		return NewFailure(ConfigError, fmt.Sprintf("unknown recognition backend %q", c.Recognition.Backend))
	}
	if c.Solver.ScanMin >= c.Solver.ScanMax {
		return NewFailure(ConfigError, "solver scan range is empty")
	}
	return nil
}
