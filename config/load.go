package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env      string         `yaml:"env"`
	Trading  TradingConfig  `yaml:"trading"`
	Risk     RiskConfig     `yaml:"risk"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Engine   EngineConfig   `yaml:"engine"`
	Logger   LoggerConfig   `yaml:"logger"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Journal  JournalConfig  `yaml:"journal"`
	Alerting AlertingConfig `yaml:"alerting"`
}

// TradingConfig 报价与层参数。
type TradingConfig struct {
	Symbol          string  `yaml:"symbol"`
	OrderNotional   float64 `yaml:"orderNotional"`   // 每层买单名义金额
	MaxLayers       int     `yaml:"maxLayers"`       // 并发层上限
	Ksig            float64 `yaml:"ksig"`            // 波动率乘数
	SMinPercent     float64 `yaml:"sMinPercent"`     // 报价偏移下限（% of mid）
	SMaxPercent     float64 `yaml:"sMaxPercent"`     // 报价偏移上限（% of mid）
	TpMultiplier    float64 `yaml:"tpMultiplier"`    // 止盈 = s * tpMultiplier
	SlMultiplier    float64 `yaml:"slMultiplier"`    // 止损 = s * slMultiplier
	TTLSeconds      int     `yaml:"ttlSeconds"`      // 挂单/持仓存活时间
	CooldownSeconds int     `yaml:"cooldownSeconds"` // 紧急平仓后的冷却
	DryRun          bool    `yaml:"dryRun"`
}

// RiskConfig 风控门限。
type RiskConfig struct {
	MaxLongQtyPercent    float64 `yaml:"maxLongQtyPercent"`    // 多头仓位上限（% of 总余额）
	StopDayPercent       float64 `yaml:"stopDayPercent"`       // 日内最大回撤（%）
	MaxConsecutiveLosses int     `yaml:"maxConsecutiveLosses"` // 连亏上限
}

type GatewayConfig struct {
	APIKey     string  `yaml:"apiKey"`
	APISecret  string  `yaml:"apiSecret"`
	BaseURL    string  `yaml:"baseURL"`
	WSEndpoint string  `yaml:"wsEndpoint"`
	RestRate   float64 `yaml:"restRate"`  // REST 限流：每秒令牌数
	RestBurst  int     `yaml:"restBurst"` // REST 限流：突发令牌数
}

// EngineConfig 更新周期与看门狗。
type EngineConfig struct {
	UpdateIntervalMs       int `yaml:"updateIntervalMs"`
	WatchdogTimeoutSeconds int `yaml:"watchdogTimeoutSeconds"`
}

type LoggerConfig struct {
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`  // json 或 console
	Outputs    []string `yaml:"outputs"` // stdout, file
	OutputFile string   `yaml:"output_file"`
	MaxSize    int      `yaml:"max_size"`
	MaxBackups int      `yaml:"max_backups"`
	MaxAge     int      `yaml:"max_age"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // 留空则关闭
}

type JournalConfig struct {
	Path string `yaml:"path"` // 留空则关闭
}

type AlertingConfig struct {
	WebhookURL        string `yaml:"webhookURL"`
	ThrottleSeconds   int    `yaml:"throttleSeconds"`
	WebhookTimeoutSec int    `yaml:"webhookTimeoutSec"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides selected fields from
// env vars if present: credentials plus symbol/notional/maxLayers/dryRun.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("PM_GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("PM_GATEWAY_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	if v := os.Getenv("PM_SYMBOL"); v != "" {
		cfg.Trading.Symbol = strings.ToUpper(v)
	}
	if v := os.Getenv("PM_ORDER_NOTIONAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("parse PM_ORDER_NOTIONAL: %w", err)
		}
		cfg.Trading.OrderNotional = f
	}
	if v := os.Getenv("PM_MAX_LAYERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse PM_MAX_LAYERS: %w", err)
		}
		cfg.Trading.MaxLayers = n
	}
	if v := os.Getenv("PM_DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("parse PM_DRY_RUN: %w", err)
		}
		cfg.Trading.DryRun = b
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	t := &cfg.Trading
	if t.Ksig <= 0 {
		t.Ksig = 2.0
	}
	if t.TpMultiplier <= 0 {
		t.TpMultiplier = 1.0
	}
	if t.SlMultiplier <= 0 {
		t.SlMultiplier = 2.0
	}
	if t.TTLSeconds <= 0 {
		t.TTLSeconds = 60
	}
	if t.CooldownSeconds <= 0 {
		t.CooldownSeconds = 30
	}
	if cfg.Engine.UpdateIntervalMs <= 0 {
		cfg.Engine.UpdateIntervalMs = 500
	}
	if cfg.Engine.WatchdogTimeoutSeconds <= 0 {
		cfg.Engine.WatchdogTimeoutSeconds = 300
	}
	if cfg.Risk.MaxConsecutiveLosses <= 0 {
		cfg.Risk.MaxConsecutiveLosses = 7
	}
	if cfg.Gateway.RestRate <= 0 {
		cfg.Gateway.RestRate = 5
	}
	if cfg.Gateway.RestBurst <= 0 {
		cfg.Gateway.RestBurst = 10
	}
	if cfg.Alerting.ThrottleSeconds <= 0 {
		cfg.Alerting.ThrottleSeconds = 60
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
	if len(cfg.Logger.Outputs) == 0 {
		cfg.Logger.Outputs = []string{"stdout"}
	}
}
