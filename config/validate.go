package config

import (
	"errors"
	"fmt"
)

// Validate ensures required fields are present and bounds are sane.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	t := cfg.Trading
	if t.Symbol == "" {
		return errors.New("trading.symbol is required")
	}
	if t.OrderNotional <= 0 {
		return errors.New("trading.orderNotional must be > 0")
	}
	if t.MaxLayers <= 0 {
		return errors.New("trading.maxLayers must be > 0")
	}
	if t.SMinPercent < 0 || t.SMaxPercent < 0 {
		return errors.New("trading offset bounds must be >= 0")
	}
	// sMin > sMax 是合法配置：宽盘口下 clamp 的下限优先（见 strategy 包）
	if t.TpMultiplier <= 0 || t.SlMultiplier <= 0 {
		return errors.New("trading tp/sl multipliers must be > 0")
	}
	if cfg.Risk.StopDayPercent <= 0 {
		return errors.New("risk.stopDayPercent must be > 0")
	}
	if cfg.Risk.MaxLongQtyPercent <= 0 || cfg.Risk.MaxLongQtyPercent > 100 {
		return fmt.Errorf("risk.maxLongQtyPercent must be in (0,100], got %v", cfg.Risk.MaxLongQtyPercent)
	}
	if !t.DryRun {
		if cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "" {
			return errors.New("gateway.apiKey/apiSecret is required (or env overrides) unless dryRun")
		}
		if cfg.Gateway.BaseURL == "" {
			return errors.New("gateway.baseURL is required unless dryRun")
		}
	}
	return nil
}
