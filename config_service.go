package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Duration is a time.Duration that reads and writes as "750ms", "60s" in JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// bare numbers are milliseconds
		var ms int64
		if err2 := json.Unmarshal(b, &ms); err2 != nil {
			return fmt.Errorf("duration: %w", err)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config holds persistent user preferences.
// Stored as JSON at ~/.witty/config.json.
type Config struct {
	LLM            LLMConfig          `json:"llm"`
	Engines        EnginesConfig      `json:"engines"`
	Hotkey         string             `json:"hotkey"`         // e.g. "ctrl+shift+space"
	HotkeyCooldown Duration           `json:"hotkeyCooldown"` // minimum gap between two triggers
	Automation     AutomationConfig   `json:"automation"`
	Logging        LoggingConfig      `json:"logging"`
	Instructions   InstructionsConfig `json:"instructions"`
	Commands       []Command          `json:"commands"`
}

type LLMConfig struct {
	Engine  string   `json:"engine"` // "openai", "ollama", "gemini"
	Timeout Duration `json:"timeout"`
}

type EnginesConfig struct {
	OpenAI OpenAIConfig `json:"openai"`
	Ollama OllamaConfig `json:"ollama"`
	Gemini GeminiConfig `json:"gemini"`
}

type OpenAIConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseURL,omitempty"`
	Model   string `json:"model"`
}

type OllamaConfig struct {
	BaseURL string `json:"baseURL"`
	Model   string `json:"model"`
}

type GeminiConfig struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

type AutomationConfig struct {
	SettleDelay Duration `json:"settleDelay"` // wait after synthetic input before reading state
	Timeout     Duration `json:"timeout"`     // per facade operation, lock wait included
}

type LoggingConfig struct {
	Level string `json:"level"` // "debug", "info", "warn", "error"
	File  string `json:"file"`  // empty means ~/.witty/logs/witty.log
}

type InstructionsConfig struct {
	Chat    string `json:"chat"`
	Titling string `json:"titling"`
}

// ActiveModel returns the model configured for engine, or the default engine's
// model when engine is empty.
func (c Config) ActiveModel(engine string) string {
	if engine == "" {
		engine = c.LLM.Engine
	}
	switch engine {
	case EngineOllama:
		return c.Engines.Ollama.Model
	case EngineGemini:
		return c.Engines.Gemini.Model
	default:
		return c.Engines.OpenAI.Model
	}
}

// Command returns the configured command with the given id.
func (c Config) Command(id string) (Command, error) {
	for _, cmd := range c.Commands {
		if cmd.ID == id {
			return cmd, nil
		}
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, id)
}

// withEnv returns a copy with credentials and hosts taken from the environment
// where the file leaves them empty. The result is never saved.
func (c Config) withEnv(getenv func(string) string) Config {
	if c.Engines.OpenAI.APIKey == "" {
		c.Engines.OpenAI.APIKey = getenv("OPENAI_API_KEY")
	}
	if c.Engines.Gemini.APIKey == "" {
		c.Engines.Gemini.APIKey = getenv("GEMINI_API_KEY")
	}
	if host := getenv("OLLAMA_HOST"); host != "" {
		c.Engines.Ollama.BaseURL = host
	}
	return c
}

// defaultConfig returns factory defaults.
func defaultConfig() Config {
	return Config{
		LLM: LLMConfig{Engine: EngineOpenAI, Timeout: Duration(60 * time.Second)},
		Engines: EnginesConfig{
			OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
			Ollama: OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3.2"},
			Gemini: GeminiConfig{Model: "gemini-2.0-flash"},
		},
		Hotkey:         "ctrl+shift+space",
		HotkeyCooldown: Duration(750 * time.Millisecond),
		Automation: AutomationConfig{
			SettleDelay: Duration(150 * time.Millisecond),
			Timeout:     Duration(3 * time.Second),
		},
		Logging: LoggingConfig{Level: "info"},
		Instructions: InstructionsConfig{
			Chat:    "You are a helpful assistant. Answer concisely and format code with markdown.",
			Titling: "Summarize the conversation below as a title of at most six words. Reply with the title only.",
		},
		Commands: defaultCommands(),
	}
}

// fillDefaults replaces zero-value fields with factory defaults.
func fillDefaults(cfg Config) Config {
	d := defaultConfig()
	if cfg.LLM.Engine == "" {
		cfg.LLM.Engine = d.LLM.Engine
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = d.LLM.Timeout
	}
	if cfg.Engines.OpenAI.Model == "" {
		cfg.Engines.OpenAI.Model = d.Engines.OpenAI.Model
	}
	if cfg.Engines.Ollama.BaseURL == "" {
		cfg.Engines.Ollama.BaseURL = d.Engines.Ollama.BaseURL
	}
	if cfg.Engines.Ollama.Model == "" {
		cfg.Engines.Ollama.Model = d.Engines.Ollama.Model
	}
	if cfg.Engines.Gemini.Model == "" {
		cfg.Engines.Gemini.Model = d.Engines.Gemini.Model
	}
	if cfg.Hotkey == "" {
		cfg.Hotkey = d.Hotkey
	}
	if cfg.HotkeyCooldown <= 0 {
		cfg.HotkeyCooldown = d.HotkeyCooldown
	}
	if cfg.Automation.SettleDelay <= 0 {
		cfg.Automation.SettleDelay = d.Automation.SettleDelay
	}
	if cfg.Automation.Timeout <= 0 {
		cfg.Automation.Timeout = d.Automation.Timeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Instructions.Chat == "" {
		cfg.Instructions.Chat = d.Instructions.Chat
	}
	if cfg.Instructions.Titling == "" {
		cfg.Instructions.Titling = d.Instructions.Titling
	}
	if len(cfg.Commands) == 0 {
		cfg.Commands = d.Commands
	}
	return cfg
}

// ConfigService loads and saves user configuration.
type ConfigService struct {
	path   string
	logger *zap.Logger
}

// NewConfigService creates a ConfigService pointing to the standard config path.
func NewConfigService(logger *zap.Logger) *ConfigService {
	return &ConfigService{
		path:   filepath.Join(appDir(), "config.json"),
		logger: logger.Named("config"),
	}
}

// newConfigServiceAt creates a ConfigService with a custom path (tests only).
func newConfigServiceAt(path string) *ConfigService {
	return &ConfigService{path: path, logger: zap.NewNop()}
}

// appDir is ~/.witty, or the working directory if the home dir is unknown.
func appDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".witty"
	}
	return filepath.Join(home, ".witty")
}

// Path returns the file the service reads and writes.
func (c *ConfigService) Path() string { return c.path }

// Load reads config from disk. Returns defaults if the file doesn't exist.
// If the file is corrupt it logs the error and writes fresh defaults, so call
// it at startup only; reloads go through load.
func (c *ConfigService) Load() Config {
	cfg, err := c.load()
	if errors.Is(err, errConfigCorrupt) {
		c.logger.Warn("parse error, resetting to defaults", zap.String("path", c.path), zap.Error(err))
		_ = c.Save(cfg) // overwrite corrupt file
		return cfg
	}
	if err != nil {
		c.logger.Warn("read error, using defaults", zap.String("path", c.path), zap.Error(err))
	}
	return cfg
}

// errConfigCorrupt marks a settings file that exists but is not valid JSON.
var errConfigCorrupt = errors.New("config: corrupt settings file")

// load reads config from disk without touching it. A missing file yields
// defaults and no error; on any other error the defaults are returned with it.
func (c *ConfigService) load() (Config, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("%w: %w", errConfigCorrupt, err)
	}
	return fillDefaults(cfg), nil
}

// Save writes the config to disk atomically (write to temp, then rename).
func (c *ConfigService) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// the file carries API keys
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
