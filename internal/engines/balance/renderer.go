package balance

import (
	"cryptodash/internal/interfaces"
	"cryptodash/internal/models"
	"cryptodash/internal/types"

	"go.uber.org/zap"
)

// Renderer receives every balance snapshot the engine produces.
// Implementations must not call back into the Engine.
type Renderer interface {
	Render(update models.BalanceUpdate)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(update models.BalanceUpdate)

func (f RendererFunc) Render(update models.BalanceUpdate) {
	f(update)
}

// LogRenderer writes each update to a zap logger
type LogRenderer struct {
	logger *zap.Logger
}

func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

func (r *LogRenderer) Render(update models.BalanceUpdate) {
	r.logger.Info("Balance update",
		zap.String("frame", string(update.Frame)),
		zap.String("balance", update.FormattedBalance),
		zap.String("change", update.FormattedChange),
		zap.Int("points", len(update.History)),
	)
}

// MultiRenderer fans an update out to several renderers in order
type MultiRenderer []Renderer

func (m MultiRenderer) Render(update models.BalanceUpdate) {
	for _, r := range m {
		r.Render(update)
	}
}

// PublisherRenderer broadcasts each update as a balance_update message
type PublisherRenderer struct {
	publisher interfaces.Publisher
}

func NewPublisherRenderer(publisher interfaces.Publisher) *PublisherRenderer {
	return &PublisherRenderer{publisher: publisher}
}

func (r *PublisherRenderer) Render(update models.BalanceUpdate) {
	r.publisher.Publish(types.BalanceUpdate, update)
}
