package gateway

import (
	"fmt"
	"strings"
	"time"

	brcfg "fxbot/internal/config"
	"fxbot/internal/gateway/binance"
	"fxbot/internal/gateway/exchange"
	"fxbot/internal/gateway/oanda"
	"fxbot/internal/market"
)

// HasBrokerCredentials 判断是否配置了经纪商凭证；没有凭证时只能用外部行情回测。
func HasBrokerCredentials(cfg *brcfg.Config) bool {
	if cfg == nil {
		return false
	}
	return strings.TrimSpace(cfg.Broker.APIKey) != "" && strings.TrimSpace(cfg.Broker.AccountID) != ""
}

func NewBrokerFromConfig(cfg *brcfg.Config) (exchange.Broker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Broker.Name)) {
	case "", "oanda":
		return oanda.New(oanda.Config{
			BaseURL:          cfg.Broker.BaseURL,
			APIKey:           cfg.Broker.APIKey,
			AccountID:        cfg.Broker.AccountID,
			HTTPTimeout:      time.Duration(cfg.Broker.TimeoutSeconds) * time.Second,
			RateLimitPerSec:  cfg.Broker.RateLimitPerSec,
			BreakerThreshold: cfg.Broker.BreakerThreshold,
			BreakerCooldown:  time.Duration(cfg.Broker.BreakerCooldownSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unsupported broker: %s", cfg.Broker.Name)
	}
}

// NewSourceFromConfig 选择回测用的历史行情源。oanda 直接复用经纪商客户端。
func NewSourceFromConfig(cfg *brcfg.Config, broker exchange.Broker) (market.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Market.Source)) {
	case "", "oanda":
		if broker == nil {
			return nil, fmt.Errorf("market source oanda requires broker credentials")
		}
		return broker, nil
	case "binance":
		return binance.New(binance.Config{
			RESTBaseURL: cfg.Market.BinanceRESTURL,
			HTTPTimeout: time.Duration(cfg.Broker.TimeoutSeconds) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported market source: %s", cfg.Market.Source)
	}
}

// SourceViews 返回该行情源实际能提供的报价视图。
func SourceViews(cfg *brcfg.Config) []market.PriceView {
	if cfg != nil && strings.EqualFold(strings.TrimSpace(cfg.Market.Source), "binance") {
		return []market.PriceView{market.ViewMid}
	}
	return []market.PriceView{market.ViewMid, market.ViewBid, market.ViewAsk}
}
