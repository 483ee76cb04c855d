// Package format renders dashboard numbers the way the frontend labels show them.
package format

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency formats an amount as USD with two fractional digits and grouping, e.g. "$12,345.67"
func Currency(amount float64) string {
	minor := decimal.NewFromFloat(amount).Round(2).Shift(2).IntPart()
	return money.New(minor, money.USD).Display()
}

// SignedPercent formats a percentage with two fractional digits and an explicit sign, e.g. "+1.23%".
// The sign follows the rounded value so -0.001 renders as "+0.00%".
func SignedPercent(pct float64) string {
	rounded := decimal.NewFromFloat(pct).Round(2)
	s := rounded.StringFixed(2) + "%"
	if rounded.Sign() >= 0 {
		return "+" + s
	}
	return s
}

// Price formats a coin price with 4 decimals below one dollar and 2 otherwise
func Price(price float64) string {
	places := int32(2)
	if price < 1 {
		places = 4
	}
	return "$" + decimal.NewFromFloat(price).StringFixed(places)
}

// Volume formats a 24h quote volume in billions, e.g. "24h Vol: $1.2B"
func Volume(volume float64) string {
	return "24h Vol: $" + billions(volume).StringFixed(1) + "B"
}

// MarketCap formats a market capitalisation in whole billions, e.g. "Market Cap: $812B"
func MarketCap(marketCap float64) string {
	return "Market Cap: $" + billions(marketCap).StringFixed(0) + "B"
}

func billions(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Div(decimal.NewFromInt(1_000_000_000))
}
