package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"cdpmock/internal/logger"
)

// EnvPrefix 环境变量前缀，例如 CDPMOCK_RELAY_TIMEOUT_MS
const EnvPrefix = "CDPMOCK"

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version" ignored:"true"`

	DevTools DevToolsConfig `yaml:"devtools"`
	Relay    RelayConfig    `yaml:"relay"`
	Log      LogConfig      `yaml:"log"`
}

// DevToolsConfig 浏览器调试端点
type DevToolsConfig struct {
	URL string `yaml:"url" split_words:"true"`
}

// RelayConfig 请求转发配置
type RelayConfig struct {
	TimeoutMS        int `yaml:"timeoutMS" split_words:"true"`
	CommandTimeoutMS int `yaml:"commandTimeoutMS" split_words:"true"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string   `yaml:"level" split_words:"true"`
	Writer     []string `yaml:"writer" split_words:"true"`
	File       string   `yaml:"file" split_words:"true"`
	MaxSizeMB  int      `yaml:"maxSizeMB" split_words:"true"`
	MaxBackups int      `yaml:"maxBackups" split_words:"true"`
	MaxAgeDays int      `yaml:"maxAgeDays" split_words:"true"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Version: "1.0.0",
		DevTools: DevToolsConfig{
			URL: "http://127.0.0.1:9222",
		},
		Relay: RelayConfig{
			TimeoutMS:        30000,
			CommandTimeoutMS: 5000,
		},
		Log: LogConfig{
			Level:      "info",
			Writer:     []string{"console"},
			File:       "cdpmock.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load 在默认配置上依次叠加 YAML 文件与环境变量，path 为空时跳过文件
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}
	return cfg, nil
}

// RelayTimeout 转发请求超时
func (c *Config) RelayTimeout() time.Duration {
	return time.Duration(c.Relay.TimeoutMS) * time.Millisecond
}

// CommandTimeout CDP 指令超时
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Relay.CommandTimeoutMS) * time.Millisecond
}

// LoggerOptions 转换为日志配置
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Log.Level,
		Writers:    c.Log.Writer,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
