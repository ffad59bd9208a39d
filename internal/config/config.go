package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	Secret       string        `mapstructure:"secret"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	AudioMime    string        `mapstructure:"audio_mime"`
	Backpressure string        `mapstructure:"backpressure"`
	ControlRate  RateConfig    `mapstructure:"control_rate"`
	STT          STTConfig     `mapstructure:"stt"`
	Assist       AssistConfig  `mapstructure:"assist"`
	Log          LogConfig     `mapstructure:"log"`
}

type RateConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

type STTConfig struct {
	Provider string `mapstructure:"provider"`
	Queue    int    `mapstructure:"queue"`
}

type AssistConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	OllamaURL   string        `mapstructure:"ollama_url"`
	OllamaModel string        `mapstructure:"ollama_model"`
	HFURL       string        `mapstructure:"hf_url"`
	HFToken     string        `mapstructure:"hf_token"`
	DocsDir     string        `mapstructure:"docs_dir"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 3001)
	v.SetDefault("static_path", "")
	v.SetDefault("secret", "")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "25s")
	v.SetDefault("idle_timeout", "60s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 256)
	v.SetDefault("audio_mime", "audio/webm;codecs=opus")
	v.SetDefault("backpressure", "drop")
	v.SetDefault("control_rate.limit", 20)
	v.SetDefault("control_rate.interval", "1s")
	v.SetDefault("stt.provider", "noop")
	v.SetDefault("stt.queue", 64)
	v.SetDefault("assist.enabled", false)
	v.SetDefault("assist.ollama_url", "http://localhost:11434/api/generate")
	v.SetDefault("assist.ollama_model", "qwen2.5:latest")
	v.SetDefault("assist.hf_url", "https://api-inference.huggingface.co/models/j-hartmann/emotion-english-distilroberta-base")
	v.SetDefault("assist.hf_token", "")
	v.SetDefault("assist.docs_dir", "data/docs")
	v.SetDefault("assist.timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads config/config.<CONFIG_ENV>.yaml (CONFIG_ENV defaults to dev)
// over the defaults. NOESIS_* environment variables override both, with
// nested keys joined by underscores (NOESIS_STT_PROVIDER).
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("NOESIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		cfg.Secret = uuid.NewString()
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("stt", cfg.STT.Provider).Bool("assist", cfg.Assist.Enabled).Msg("config ready")
	return &cfg, nil
}
