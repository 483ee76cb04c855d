package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cryptodash/internal/config"
	"cryptodash/internal/database"
	"cryptodash/internal/engines/balance"
	"cryptodash/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct{}

func (stubSource) Tickers(ctx context.Context, pairs []string) ([]models.Ticker, error) {
	tickers := make([]models.Ticker, 0, len(pairs))
	for _, p := range pairs {
		tickers = append(tickers, models.Ticker{Symbol: p, LastPrice: "10", PriceChangePercent: "1", QuoteVolume: "1000"})
	}
	return tickers, nil
}

func (stubSource) Closes(ctx context.Context, pair, interval string, limit int) ([]float64, error) {
	return []float64{1, 2, 3}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.URL = "file::memory:"
	cfg.Market.Enabled = false
	cfg.Market.Coins = cfg.Market.Coins[:2]
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, err := New(testConfig(), zap.NewNop(), Dependencies{
		MarketSource: stubSource{},
		Random:       balance.NewSeededRandomSource(1, 2),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func get(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutesAreWired(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, get(t, h, http.MethodGet, "/api/v1/health", "").Code)

	w := get(t, h, http.MethodGet, "/api/v1/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.BalanceUpdate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "$12,345.67", snap.FormattedBalance)
	assert.Equal(t, models.TimeFrame24H, snap.Frame)

	w = get(t, h, http.MethodPost, "/api/v1/balance/timeframe", `{"timeframe":"1M"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TimeFrame1M, s.Engine().Frame())

	w = get(t, h, http.MethodPost, "/api/v1/market/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	var market models.MarketSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &market))
	assert.Len(t, market.Coins, 2)

	w = get(t, h, http.MethodPost, "/api/v1/chat/bitcoin", `{"body":"gm"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	w := get(t, s.Handler(), http.MethodOptions, "/api/v1/balance", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRejectsBadDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.Database.URL = "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"
	_, err := New(cfg, zap.NewNop(), Dependencies{MarketSource: stubSource{}})
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "0"
	cfg.Market.Enabled = true
	cfg.Market.RefreshSchedule = "@every 1h"

	s, err := New(cfg, zap.NewNop(), Dependencies{MarketSource: stubSource{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Engine().Running() }, 3*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, s.Engine().Running())
}

func TestRunReleasesResourcesOnStartupError(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(s *Server)
		cfg     func(c *config.Config)
	}{
		{
			name:    "bad refresh schedule",
			prepare: func(s *Server) {},
			cfg: func(c *config.Config) {
				c.Market.Enabled = true
				c.Market.RefreshSchedule = "not a schedule"
			},
		},
		{
			name:    "engine already running",
			prepare: func(s *Server) { require.NoError(t, s.Engine().Start()) },
			cfg:     func(c *config.Config) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.Port = "0"
			tt.cfg(cfg)

			s, err := New(cfg, zap.NewNop(), Dependencies{MarketSource: stubSource{}})
			require.NoError(t, err)
			tt.prepare(s)

			assert.Error(t, s.Run(context.Background()))
			assert.False(t, s.Engine().Running())
			assert.Error(t, database.Ping(s.db), "database is closed")

			select {
			case <-s.hubDone:
			case <-time.After(3 * time.Second):
				t.Fatal("hub still running")
			}
		})
	}
}
