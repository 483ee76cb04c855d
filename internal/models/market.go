package models

import (
	"strconv"
)

// Ticker represents 24h rolling statistics for one trading pair
type Ticker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
	CloseTime          int64  `json:"closeTime"`
}

// TickerValues is the numeric form of a Ticker
type TickerValues struct {
	Price         float64
	ChangePercent float64
	QuoteVolume   float64
}

// Parse converts the exchange string fields to numbers
func (t *Ticker) Parse() (*TickerValues, error) {
	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return nil, err
	}

	change, err := strconv.ParseFloat(t.PriceChangePercent, 64)
	if err != nil {
		return nil, err
	}

	volume, err := strconv.ParseFloat(t.QuoteVolume, 64)
	if err != nil {
		return nil, err
	}

	return &TickerValues{
		Price:         price,
		ChangePercent: change,
		QuoteVolume:   volume,
	}, nil
}

// CoinListing maps a dashboard coin to its exchange trading pair
type CoinListing struct {
	ID     string `json:"id" yaml:"id"`         // Dashboard id, e.g. "bitcoin"
	Symbol string `json:"symbol" yaml:"symbol"` // Display symbol, e.g. "BTC"
	Name   string `json:"name" yaml:"name"`
	Pair   string `json:"pair" yaml:"pair"` // Exchange pair, e.g. "BTCUSDT"

	// CirculatingSupply, when set, yields a market cap of price * supply
	CirculatingSupply float64 `json:"circulatingSupply,omitempty" yaml:"circulatingSupply,omitempty"`
}

// Coin is one row of the dashboard price list
type Coin struct {
	ID                 string    `json:"id"`
	Symbol             string    `json:"symbol"`
	Name               string    `json:"name"`
	Price              float64   `json:"price"`
	FormattedPrice     string    `json:"formattedPrice"`
	ChangePercent      float64   `json:"changePercent"`
	FormattedChange    string    `json:"formattedChange"`
	Positive           bool      `json:"positive"`
	Volume             float64   `json:"volume"`
	FormattedVolume    string    `json:"formattedVolume"`
	MarketCap          float64   `json:"marketCap"`
	FormattedMarketCap string    `json:"formattedMarketCap,omitempty"`
	Sparkline          []float64 `json:"sparkline,omitempty"`
	UpdatedAt          int64     `json:"updatedAt"` // Milliseconds
}

// MarketSnapshot is the payload of market_update messages and GET /market/coins
type MarketSnapshot struct {
	Coins       []Coin `json:"coins"`
	RefreshedAt int64  `json:"refreshedAt"` // Milliseconds, zero until the first refresh succeeds
}
