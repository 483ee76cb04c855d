package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"cryptodash/internal/models"

	"github.com/adshao/go-binance/v2"
)

const (
	requestTimeout = 30 * time.Second
	// Binance allows 1200 requests per minute on public endpoints; one every 100ms stays well under it
	minRequestInterval = 100 * time.Millisecond
)

// BinanceService wraps the public Binance REST API; no API keys are needed
type BinanceService struct {
	client       *binance.Client
	lastRequest  time.Time
	requestMutex sync.Mutex
}

// NewBinanceService creates a new Binance service instance
func NewBinanceService() *BinanceService {
	return &BinanceService{
		client: binance.NewClient("", ""),
	}
}

// Tickers fetches 24h rolling statistics for the given pairs in one request
func (b *BinanceService) Tickers(ctx context.Context, pairs []string) ([]models.Ticker, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	if err := b.waitForRateLimit(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	stats, err := b.client.NewListPriceChangeStatsService().Symbols(pairs).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch 24h stats: %w", err)
	}

	tickers := make([]models.Ticker, 0, len(stats))
	for _, s := range stats {
		tickers = append(tickers, models.Ticker{
			Symbol:             s.Symbol,
			LastPrice:          s.LastPrice,
			PriceChangePercent: s.PriceChangePercent,
			QuoteVolume:        s.QuoteVolume,
			CloseTime:          s.CloseTime,
		})
	}
	return tickers, nil
}

// Closes returns the close prices of the latest limit klines, oldest first
func (b *BinanceService) Closes(ctx context.Context, pair, interval string, limit int) ([]float64, error) {
	if !ValidateInterval(interval) {
		return nil, fmt.Errorf("invalid kline interval: %s", interval)
	}
	if err := b.waitForRateLimit(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	klines, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines for %s: %w", pair, err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid close %q for %s: %w", k.Close, pair, err)
		}
		closes = append(closes, c)
	}
	return closes, nil
}

// ValidateInterval checks if the interval is a Binance kline interval
func ValidateInterval(interval string) bool {
	validIntervals := map[string]bool{
		"1m":  true,
		"3m":  true,
		"5m":  true,
		"15m": true,
		"30m": true,
		"1h":  true,
		"2h":  true,
		"4h":  true,
		"6h":  true,
		"8h":  true,
		"12h": true,
		"1d":  true,
		"3d":  true,
		"1w":  true,
		"1M":  true,
	}
	return validIntervals[interval]
}

// waitForRateLimit spaces requests at least minRequestInterval apart
func (b *BinanceService) waitForRateLimit(ctx context.Context) error {
	b.requestMutex.Lock()
	defer b.requestMutex.Unlock()

	if wait := minRequestInterval - time.Since(b.lastRequest); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.lastRequest = time.Now()
	return nil
}
