package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cryptodash/internal/format"
	"cryptodash/internal/interfaces"
	"cryptodash/internal/models"
	"cryptodash/internal/types"

	"go.uber.org/zap"
)

// Source supplies raw market data; integrations/binance implements it
type Source interface {
	Tickers(ctx context.Context, pairs []string) ([]models.Ticker, error)
	Closes(ctx context.Context, pair, interval string, limit int) ([]float64, error)
}

type Options struct {
	Coins             []models.CoinListing
	MaxRetries        int // Retries after the first failed fetch
	RetryDelay        time.Duration
	SparklineCoins    int // Only the first N coins carry a sparkline
	SparklinePoints   int
	SparklineInterval string
	Now               func() time.Time
}

// MarketDataService keeps the latest coin list in memory and publishes each refresh
type MarketDataService struct {
	source    Source
	publisher interfaces.Publisher
	opts      Options
	logger    *zap.Logger

	mu          sync.RWMutex
	coins       []models.Coin
	refreshedAt time.Time

	refreshMu sync.Mutex // One refresh at a time
}

// NewMarketDataService creates a new market data service
func NewMarketDataService(source Source, publisher interfaces.Publisher, opts Options, logger *zap.Logger) *MarketDataService {
	if publisher == nil {
		publisher = interfaces.NopPublisher{}
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.SparklinePoints < 1 {
		opts.SparklinePoints = 7
	}
	if opts.SparklineInterval == "" {
		opts.SparklineInterval = "1d"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MarketDataService{
		source:    source,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Refresh fetches the coin list and retries up to MaxRetries times with a fixed
// delay. On failure the previous list stays cached and the last error is returned.
func (s *MarketDataService) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	attempts := s.opts.MaxRetries + 1
	var coins []models.Coin
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		coins, err = s.fetch(ctx)
		if err == nil {
			break
		}

		if attempt < attempts {
			s.logger.Warn("Market refresh failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", attempts),
				zap.Duration("delay", s.opts.RetryDelay),
				zap.Error(err))

			select {
			case <-time.After(s.opts.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err != nil {
		s.logger.Error("Market refresh failed", zap.Int("attempts", attempts), zap.Error(err))
		return fmt.Errorf("failed to refresh market data after %d attempts: %w", attempts, err)
	}

	s.mu.Lock()
	s.coins = coins
	s.refreshedAt = s.opts.Now()
	s.mu.Unlock()

	s.logger.Info("Market data refreshed", zap.Int("coins", len(coins)))
	s.publisher.Publish(types.MarketUpdate, s.Snapshot())
	return nil
}

func (s *MarketDataService) fetch(ctx context.Context) ([]models.Coin, error) {
	pairs := make([]string, len(s.opts.Coins))
	for i, c := range s.opts.Coins {
		pairs[i] = c.Pair
	}

	tickers, err := s.source.Tickers(ctx, pairs)
	if err != nil {
		return nil, err
	}
	byPair := make(map[string]models.Ticker, len(tickers))
	for _, t := range tickers {
		byPair[t.Symbol] = t
	}

	updatedAt := s.opts.Now().UnixMilli()
	coins := make([]models.Coin, 0, len(s.opts.Coins))
	for i, listing := range s.opts.Coins {
		ticker, ok := byPair[listing.Pair]
		if !ok {
			s.logger.Warn("No ticker for coin", zap.String("coin", listing.ID), zap.String("pair", listing.Pair))
			continue
		}

		values, err := ticker.Parse()
		if err != nil {
			s.logger.Warn("Skipping malformed ticker", zap.String("pair", listing.Pair), zap.Error(err))
			continue
		}

		coin := buildCoin(listing, values, updatedAt)
		if i < s.opts.SparklineCoins {
			closes, err := s.source.Closes(ctx, listing.Pair, s.opts.SparklineInterval, s.opts.SparklinePoints)
			if err != nil {
				return nil, err
			}
			coin.Sparkline = lastN(closes, s.opts.SparklinePoints)
		}
		coins = append(coins, coin)
	}
	return coins, nil
}

func buildCoin(listing models.CoinListing, values *models.TickerValues, updatedAt int64) models.Coin {
	coin := models.Coin{
		ID:              listing.ID,
		Symbol:          listing.Symbol,
		Name:            listing.Name,
		Price:           values.Price,
		FormattedPrice:  format.Price(values.Price),
		ChangePercent:   values.ChangePercent,
		FormattedChange: format.SignedPercent(values.ChangePercent),
		Positive:        values.ChangePercent >= 0,
		Volume:          values.QuoteVolume,
		FormattedVolume: format.Volume(values.QuoteVolume),
		UpdatedAt:       updatedAt,
	}
	if listing.CirculatingSupply > 0 {
		coin.MarketCap = values.Price * listing.CirculatingSupply
		coin.FormattedMarketCap = format.MarketCap(coin.MarketCap)
	}
	return coin
}

func lastN(values []float64, n int) []float64 {
	if len(values) > n {
		values = values[len(values)-n:]
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}

// Snapshot returns a copy of the cached coin list
func (s *MarketDataService) Snapshot() models.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coins := make([]models.Coin, len(s.coins))
	copy(coins, s.coins)

	var refreshedAt int64
	if !s.refreshedAt.IsZero() {
		refreshedAt = s.refreshedAt.UnixMilli()
	}
	return models.MarketSnapshot{Coins: coins, RefreshedAt: refreshedAt}
}

// Coin looks up one cached coin by dashboard id
func (s *MarketDataService) Coin(id string) (models.Coin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.coins {
		if c.ID == id {
			return c, true
		}
	}
	return models.Coin{}, false
}

// Listings returns the configured coins
func (s *MarketDataService) Listings() []models.CoinListing {
	out := make([]models.CoinListing, len(s.opts.Coins))
	copy(out, s.opts.Coins)
	return out
}
