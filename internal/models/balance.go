package models

// BalanceUpdate is a read-only snapshot of the simulated balance handed to renderers
type BalanceUpdate struct {
	Balance          float64   `json:"balance"`
	FormattedBalance string    `json:"formattedBalance"`
	Reference        float64   `json:"reference"`
	ChangePercent    float64   `json:"changePercent"`
	FormattedChange  string    `json:"formattedChange"`
	Positive         bool      `json:"positive"`
	History          []float64 `json:"history"`
	Frame            TimeFrame `json:"frame"`
	IntervalMs       int64     `json:"intervalMs"`
	Retention        int       `json:"retention"`
	Timestamp        int64     `json:"timestamp"` // Milliseconds
}
