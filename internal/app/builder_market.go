package app

import (
	"context"
	"strings"
	"time"

	"niftyfib/internal/config"
	"niftyfib/internal/logger"
	"niftyfib/internal/market"
	"niftyfib/internal/pkg/circuit"
)

// MarketStack 汇总行情相关依赖。
type MarketStack struct {
	Feed       *market.Feed
	SourceName string
	Close      func() error
}

func buildMarketStack(_ context.Context, cfg config.MarketConfig) (*MarketStack, error) {
	src := market.NewYahooSource(market.YahooConfig{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout(),
		Retries:         cfg.Retries,
		Backoff:         time.Second,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	feedCfg := market.FeedConfig{
		Source:   src,
		Location: cfg.Location(),
		Tickers:  map[string]string{cfg.Symbol: cfg.Ticker},
		Timeout:  cfg.Timeout() * time.Duration(cfg.Retries+1),
		Breaker:  circuit.New(src.Name(), cfg.BreakerThreshold, cfg.BreakerCooldown()),
	}
	stack := &MarketStack{SourceName: src.Name()}
	if path := strings.TrimSpace(cfg.CachePath); path != "" {
		cache, err := market.NewSQLiteCache(path)
		if err != nil {
			return nil, err
		}
		feedCfg.Cache = cache
		stack.Close = cache.Close
		logger.Infof("✓ 日线缓存: %s", path)
	}
	feed, err := market.NewFeed(feedCfg)
	if err != nil {
		if stack.Close != nil {
			_ = stack.Close()
		}
		return nil, err
	}
	stack.Feed = feed
	return stack, nil
}
