package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// TradersPostConfig 下游执行端点（TradersPost webhook）配置
type TradersPostConfig struct {
	WebhookURL      string `validate:"omitempty,url"`
	DefaultQuantity int    `validate:"gte=0"` // <=0 表示不携带 quantity 字段
	TimeoutSeconds  int    `validate:"gt=0,lte=60"`
	Interval        string // 默认 interval（趋势更新未携带时使用）
}

// EngineConfig 仲裁引擎配置
type EngineConfig struct {
	FreshnessWindowSeconds float64 `validate:"gt=0"` // 趋势观测的新鲜度窗口
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Listen                string `validate:"required"`
	MaxConcurrentRequests int64  `validate:"gt=0"`
	MaxBodyBytes          int64  `validate:"gt=0"`
}

// Config 应用配置
type Config struct {
	Server        ServerConfig
	TradersPost   TradersPostConfig
	Engine        EngineConfig
	MetricsListen string // 为空则不启动 debug/metrics 服务
	DryRun        bool   // 纸交易模式：只打印指令，不真正投递
	LogLevel      string `validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	LogFile       string
	LogJSON       bool
}

// FreshnessWindow 返回新鲜度窗口
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Engine.FreshnessWindowSeconds * float64(time.Second))
}

// DeliveryTimeout 返回单次投递超时
func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.TradersPost.TimeoutSeconds) * time.Second
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	Listen string `yaml:"listen" json:"listen"`
	Server struct {
		MaxConcurrentRequests int64 `yaml:"max_concurrent_requests" json:"max_concurrent_requests"`
		MaxBodyBytes          int64 `yaml:"max_body_bytes" json:"max_body_bytes"`
	} `yaml:"server" json:"server"`
	TradersPost struct {
		WebhookURL      string `yaml:"webhook_url" json:"webhook_url"`
		DefaultQuantity *int   `yaml:"default_quantity" json:"default_quantity"`
		TimeoutSeconds  int    `yaml:"timeout_seconds" json:"timeout_seconds"`
		Interval        string `yaml:"interval" json:"interval"`
	} `yaml:"traderspost" json:"traderspost"`
	Engine struct {
		FreshnessWindowSeconds float64 `yaml:"freshness_window_seconds" json:"freshness_window_seconds"`
	} `yaml:"engine" json:"engine"`
	MetricsListen string `yaml:"metrics_listen" json:"metrics_listen"`
	DryRun        *bool  `yaml:"dry_run" json:"dry_run"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	LogFile       string `yaml:"log_file" json:"log_file"`
	LogJSON       *bool  `yaml:"log_json" json:"log_json"`
}

// LoadFromFile 从指定文件加载配置；filePath 为空时只使用环境变量和默认值。
// 优先级：配置文件 > 环境变量 > 默认值
func LoadFromFile(filePath string) (*Config, error) {
	var cf *ConfigFile
	if filePath != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	} else {
		cf = &ConfigFile{}
	}

	config := &Config{
		Server: ServerConfig{
			Listen:                getValueFromSources(cf.Listen, listenFromEnv()),
			MaxConcurrentRequests: getInt64FromSources(cf.Server.MaxConcurrentRequests, int64(parseIntEnv("MAX_CONCURRENT_REQUESTS", 32))),
			MaxBodyBytes:          getInt64FromSources(cf.Server.MaxBodyBytes, int64(parseIntEnv("MAX_BODY_BYTES", 64*1024))),
		},
		TradersPost: TradersPostConfig{
			WebhookURL: getValueFromSources(cf.TradersPost.WebhookURL, getEnv("TP_WEBHOOK_URL", "")),
			DefaultQuantity: func() int {
				if cf.TradersPost.DefaultQuantity != nil {
					return *cf.TradersPost.DefaultQuantity
				}
				return parseIntEnv("TP_DEFAULT_QTY", 1)
			}(),
			TimeoutSeconds: getIntFromSources(cf.TradersPost.TimeoutSeconds, parseIntEnv("TP_TIMEOUT_SECONDS", 5)),
			Interval:       getValueFromSources(cf.TradersPost.Interval, getEnv("TP_INTERVAL", "")),
		},
		Engine: EngineConfig{
			FreshnessWindowSeconds: getFloatFromSources(cf.Engine.FreshnessWindowSeconds, parseFloatEnv("FRESHNESS_WINDOW_SECONDS", 5)),
		},
		MetricsListen: getValueFromSources(cf.MetricsListen, getEnv("METRICS_LISTEN", "")),
		DryRun:        getBoolFromSources(cf.DryRun, parseBoolEnv("DRY_RUN", false)),
		LogLevel:      getValueFromSources(cf.LogLevel, getEnv("LOG_LEVEL", "info")),
		LogFile:       getValueFromSources(cf.LogFile, getEnv("LOG_FILE", "logs/titanbridge.log")),
		LogJSON:       getBoolFromSources(cf.LogJSON, parseBoolEnv("LOG_JSON", false)),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return config, nil
}

var validate = validator.New()

// Validate 验证配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !c.DryRun && c.TradersPost.WebhookURL == "" {
		return fmt.Errorf("TP_WEBHOOK_URL 未配置（或开启 DRY_RUN）")
	}
	return nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	return &configFile, nil
}

// listenFromEnv TITAN_LISTEN 优先，其次兼容 PORT
func listenFromEnv() string {
	if v := getEnv("TITAN_LISTEN", ""); v != "" {
		return v
	}
	if port := getEnv("PORT", ""); port != "" {
		return ":" + port
	}
	return ":8000"
}

func getValueFromSources(configValue, envValue string) string {
	if configValue != "" {
		return configValue
	}
	return envValue
}

func getIntFromSources(configValue, envValue int) int {
	if configValue > 0 {
		return configValue
	}
	return envValue
}

func getInt64FromSources(configValue, envValue int64) int64 {
	if configValue > 0 {
		return configValue
	}
	return envValue
}

func getFloatFromSources(configValue, envValue float64) float64 {
	if configValue > 0 {
		return configValue
	}
	return envValue
}

func getBoolFromSources(configValue *bool, envValue bool) bool {
	if configValue != nil {
		return *configValue
	}
	return envValue
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseFloatEnv 解析浮点数环境变量
func parseFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
