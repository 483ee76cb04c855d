package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cryptodash/internal/config"
	"cryptodash/internal/models"
	"cryptodash/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu          sync.Mutex
	tickers     []models.Ticker
	closes      map[string][]float64
	failTickers int // Fail this many Tickers calls before succeeding
	tickerCalls int
	closeCalls  []string
}

func (f *fakeSource) Tickers(ctx context.Context, pairs []string) ([]models.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickerCalls++
	if f.failTickers > 0 {
		f.failTickers--
		return nil, errors.New("exchange unavailable")
	}
	return f.tickers, nil
}

func (f *fakeSource) Closes(ctx context.Context, pair, interval string, limit int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls = append(f.closeCalls, pair)
	return f.closes[pair], nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []types.MessageType
	data  []interface{}
}

func (p *recordingPublisher) Publish(msgType types.MessageType, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, msgType)
	p.data = append(p.data, data)
}

var testCoins = []models.CoinListing{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Pair: "BTCUSDT", CirculatingSupply: 19_000_000},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Pair: "ETHUSDT"},
	{ID: "cardano", Symbol: "ADA", Name: "Cardano", Pair: "ADAUSDT"},
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tickers: []models.Ticker{
			{Symbol: "BTCUSDT", LastPrice: "43000.125", PriceChangePercent: "1.234", QuoteVolume: "1230000000"},
			{Symbol: "ETHUSDT", LastPrice: "2300.5", PriceChangePercent: "-0.456", QuoteVolume: "800000000"},
			{Symbol: "ADAUSDT", LastPrice: "0.51234", PriceChangePercent: "0", QuoteVolume: "95000000"},
		},
		closes: map[string][]float64{
			"BTCUSDT": {1, 2, 3, 4, 5, 6, 7, 8},
			"ETHUSDT": {10, 11, 12},
		},
	}
}

func TestRefreshBuildsCoins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source := newFakeSource()
	pub := &recordingPublisher{}
	svc := NewMarketDataService(source, pub, Options{
		Coins:           testCoins,
		MaxRetries:      3,
		SparklineCoins:  2,
		SparklinePoints: 7,
		Now:             func() time.Time { return now },
	}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))

	snap := svc.Snapshot()
	assert.Equal(t, now.UnixMilli(), snap.RefreshedAt)
	require.Len(t, snap.Coins, 3)

	btc := snap.Coins[0]
	assert.Equal(t, "bitcoin", btc.ID)
	assert.Equal(t, "$43000.13", btc.FormattedPrice)
	assert.Equal(t, "+1.23%", btc.FormattedChange)
	assert.True(t, btc.Positive)
	assert.Equal(t, "24h Vol: $1.2B", btc.FormattedVolume)
	assert.Equal(t, "Market Cap: $817B", btc.FormattedMarketCap)
	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8}, btc.Sparkline)

	eth := snap.Coins[1]
	assert.Equal(t, "-0.46%", eth.FormattedChange)
	assert.False(t, eth.Positive)
	assert.Zero(t, eth.MarketCap)
	assert.Empty(t, eth.FormattedMarketCap)
	assert.Equal(t, []float64{10, 11, 12}, eth.Sparkline)

	ada := snap.Coins[2]
	assert.Equal(t, "$0.5123", ada.FormattedPrice)
	assert.Equal(t, "+0.00%", ada.FormattedChange)
	assert.Nil(t, ada.Sparkline)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, source.closeCalls, "only the first coins fetch sparklines")

	require.Len(t, pub.types, 1)
	assert.Equal(t, types.MarketUpdate, pub.types[0])
	assert.Equal(t, snap, pub.data[0])

	coin, ok := svc.Coin("cardano")
	assert.True(t, ok)
	assert.Equal(t, "ADA", coin.Symbol)
	_, ok = svc.Coin("dogecoin")
	assert.False(t, ok)
}

func TestDefaultCoinsCarryMarketCap(t *testing.T) {
	svc := NewMarketDataService(newFakeSource(), nil, Options{
		Coins: config.DefaultCoins()[:2],
	}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))
	coins := svc.Snapshot().Coins
	require.Len(t, coins, 2)

	// 43000.125 * 19.8M and 2300.5 * 120M
	assert.Equal(t, "Market Cap: $851B", coins[0].FormattedMarketCap)
	assert.Equal(t, "Market Cap: $276B", coins[1].FormattedMarketCap)
}

func TestRefreshRetriesThenSucceeds(t *testing.T) {
	source := newFakeSource()
	source.failTickers = 2
	svc := NewMarketDataService(source, nil, Options{
		Coins:      testCoins,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, 3, source.tickerCalls)
	assert.Len(t, svc.Snapshot().Coins, 3)
}

func TestRefreshSucceedsOnLastRetry(t *testing.T) {
	source := newFakeSource()
	source.failTickers = 3
	svc := NewMarketDataService(source, nil, Options{
		Coins:      testCoins,
		MaxRetries: config.Default().Market.MaxRetries,
		RetryDelay: time.Millisecond,
	}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, 4, source.tickerCalls, "one fetch plus three retries")
	assert.Len(t, svc.Snapshot().Coins, 3)
}

func TestRefreshWithoutRetries(t *testing.T) {
	source := newFakeSource()
	source.failTickers = 1
	svc := NewMarketDataService(source, nil, Options{Coins: testCoins}, zap.NewNop())

	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 attempts")
	assert.Equal(t, 1, source.tickerCalls)
}

func TestRefreshFailureKeepsPreviousCache(t *testing.T) {
	source := newFakeSource()
	pub := &recordingPublisher{}
	svc := NewMarketDataService(source, pub, Options{
		Coins:      testCoins,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))
	before := svc.Snapshot()

	source.failTickers = 5
	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 4, source.tickerCalls, "one successful refresh plus three failed attempts")

	assert.Equal(t, before, svc.Snapshot())
	assert.Len(t, pub.types, 1, "failed refresh publishes nothing")
}

func TestRefreshHonoursCancellationDuringRetryDelay(t *testing.T) {
	source := newFakeSource()
	source.failTickers = 5
	svc := NewMarketDataService(source, nil, Options{
		Coins:      testCoins,
		MaxRetries: 3,
		RetryDelay: time.Hour,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, source.tickerCalls)
}

func TestRefreshSkipsMissingAndMalformedTickers(t *testing.T) {
	source := newFakeSource()
	source.tickers = []models.Ticker{
		{Symbol: "BTCUSDT", LastPrice: "oops", PriceChangePercent: "1", QuoteVolume: "1"},
		{Symbol: "ADAUSDT", LastPrice: "0.5", PriceChangePercent: "1", QuoteVolume: "1"},
	}
	svc := NewMarketDataService(source, nil, Options{Coins: testCoins}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))
	coins := svc.Snapshot().Coins
	require.Len(t, coins, 1)
	assert.Equal(t, "cardano", coins[0].ID)
}

func TestSnapshotBeforeRefresh(t *testing.T) {
	svc := NewMarketDataService(newFakeSource(), nil, Options{Coins: testCoins}, zap.NewNop())
	snap := svc.Snapshot()
	assert.NotNil(t, snap.Coins)
	assert.Empty(t, snap.Coins)
	assert.Zero(t, snap.RefreshedAt)
	assert.Len(t, svc.Listings(), 3)
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *countingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestSchedulerRegisterAndRun(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("boom")}
	s := NewScheduler(context.Background(), refresher, zap.NewNop())

	assert.Error(t, s.Register("not a schedule"))
	require.NoError(t, s.Register("@every 1s"))

	s.RunNow()
	assert.Equal(t, 1, refresher.count())

	s.Start()
	assert.Eventually(t, func() bool { return refresher.count() >= 2 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}
