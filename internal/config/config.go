package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "MURMUR"

// Config holds every setting of the relay. Durations accept Go duration
// strings ("3s", "5m") in files and environment variables.
type Config struct {
	OllamaHost         string        `mapstructure:"ollama_host"`
	ListenAddr         string        `mapstructure:"listen_addr"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins"`
	RedisURL           string        `mapstructure:"redis_url"`
	RedisChannelPrefix string        `mapstructure:"redis_channel_prefix"`
	MonitorInterval    time.Duration `mapstructure:"monitor_interval"`
	ChatTimeout        time.Duration `mapstructure:"chat_timeout"`

	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	TopP        float32 `mapstructure:"top_p"`
	TopK        uint32  `mapstructure:"top_k"`

	Dev       bool   `mapstructure:"dev"`
	LogFile   string `mapstructure:"log_file"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// fileConfig is the on-disk TOML layout written by WriteDefault.
type fileConfig struct {
	OllamaHost         string   `toml:"ollama_host"`
	ListenAddr         string   `toml:"listen_addr"`
	AllowedOrigins     []string `toml:"allowed_origins"`
	RedisURL           string   `toml:"redis_url"`
	RedisChannelPrefix string   `toml:"redis_channel_prefix"`
	MonitorInterval    string   `toml:"monitor_interval"`
	ChatTimeout        string   `toml:"chat_timeout"`
	Model              string   `toml:"model"`
	Temperature        float32  `toml:"temperature"`
	TopP               float32  `toml:"top_p"`
	TopK               uint32   `toml:"top_k"`
	Dev                bool     `toml:"dev"`
	LogFile            string   `toml:"log_file"`
	LogLevel           string   `toml:"log_level"`
	LogFormat          string   `toml:"log_format"`
}

func Defaults() Config {
	return Config{
		OllamaHost:         "http://localhost:11434",
		ListenAddr:         ":8080",
		AllowedOrigins:     []string{},
		RedisChannelPrefix: "murmur:events:",
		MonitorInterval:    3 * time.Second,
		ChatTimeout:        5 * time.Minute,
		Model:              "llama3:latest",
		Temperature:        0.8,
		TopP:               0.9,
		TopK:               40,
		LogFile:            DefaultLogPath(),
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Dir returns $HOME/.config/murmur, falling back to a relative directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Join(".murmur")
	}
	return filepath.Join(home, ".config", "murmur")
}

func DefaultLogPath() string {
	return filepath.Join(Dir(), "logs", "murmur.log")
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("ollama_host", d.OllamaHost)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("allowed_origins", d.AllowedOrigins)
	v.SetDefault("redis_url", d.RedisURL)
	v.SetDefault("redis_channel_prefix", d.RedisChannelPrefix)
	v.SetDefault("monitor_interval", d.MonitorInterval)
	v.SetDefault("chat_timeout", d.ChatTimeout)
	v.SetDefault("model", d.Model)
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("top_p", d.TopP)
	v.SetDefault("top_k", d.TopK)
	v.SetDefault("dev", d.Dev)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// OLLAMA_HOST is what the ollama CLI itself reads.
	v.BindEnv("ollama_host", EnvPrefix+"_OLLAMA_HOST", "OLLAMA_HOST")
}

// ReadInConfig loads .env from the working directory, then the config file:
// cfgFile when given, otherwise config.toml from Dir(). A missing default
// file is not an error.
func ReadInConfig(v *viper.Viper, cfgFile string) error {
	godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
		return nil
	}

	v.AddConfigPath(Dir())
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.MonitorInterval <= 0 {
		return Config{}, fmt.Errorf("monitor_interval must be positive, got %s", cfg.MonitorInterval)
	}
	if cfg.ChatTimeout < 0 {
		return Config{}, fmt.Errorf("chat_timeout must not be negative, got %s", cfg.ChatTimeout)
	}
	return cfg, nil
}

// WriteDefault writes cfg as TOML to path, refusing to overwrite an existing file.
func WriteDefault(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return Write(f, cfg)
}

// Write encodes cfg as TOML in the config file layout.
func Write(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(toFile(cfg))
}

func toFile(cfg Config) fileConfig {
	return fileConfig{
		OllamaHost:         cfg.OllamaHost,
		ListenAddr:         cfg.ListenAddr,
		AllowedOrigins:     cfg.AllowedOrigins,
		RedisURL:           cfg.RedisURL,
		RedisChannelPrefix: cfg.RedisChannelPrefix,
		MonitorInterval:    cfg.MonitorInterval.String(),
		ChatTimeout:        cfg.ChatTimeout.String(),
		Model:              cfg.Model,
		Temperature:        cfg.Temperature,
		TopP:               cfg.TopP,
		TopK:               cfg.TopK,
		Dev:                cfg.Dev,
		LogFile:            cfg.LogFile,
		LogLevel:           cfg.LogLevel,
		LogFormat:          cfg.LogFormat,
	}
}
