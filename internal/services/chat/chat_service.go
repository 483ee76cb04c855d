package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	chatDAO "cryptodash/internal/dao/chat"
	"cryptodash/internal/interfaces"
	"cryptodash/internal/models"
	"cryptodash/internal/types"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const defaultAuthor = "me"

var (
	ErrInvalidCoin    = errors.New("invalid coin id")
	ErrInvalidMessage = errors.New("invalid chat message")
)

type Options struct {
	MaxBodyLength int // In runes
	HistoryLimit  int // Default page size
	MaxHistory    int // Upper bound on page size and on messages kept per coin
	Now           func() time.Time
}

// ChatService stores per-coin chat history and publishes new messages
type ChatService struct {
	dao       chatDAO.ChatDAOInterface
	publisher interfaces.Publisher
	opts      Options
	logger    *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(dao chatDAO.ChatDAOInterface, publisher interfaces.Publisher, opts Options, logger *zap.Logger) *ChatService {
	if publisher == nil {
		publisher = interfaces.NopPublisher{}
	}
	if opts.MaxBodyLength <= 0 {
		opts.MaxBodyLength = 500
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.MaxHistory < opts.HistoryLimit {
		opts.MaxHistory = opts.HistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatService{
		dao:       dao,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Send validates, stores and broadcasts a message for coinID
func (s *ChatService) Send(ctx context.Context, coinID, author, body string) (*models.ChatMessage, error) {
	coinID, err := NormalizeCoin(coinID)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is empty", ErrInvalidMessage)
	}
	if n := utf8.RuneCountInString(body); n > s.opts.MaxBodyLength {
		return nil, fmt.Errorf("%w: body is %d characters, limit is %d", ErrInvalidMessage, n, s.opts.MaxBodyLength)
	}

	author = strings.TrimSpace(author)
	if author == "" {
		author = defaultAuthor
	}

	now := s.opts.Now()
	message := &models.ChatMessage{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		CoinID:    coinID,
		Author:    author,
		Body:      body,
		CreatedAt: now,
	}

	if err := s.dao.Create(ctx, message); err != nil {
		return nil, err
	}

	if trimmed, err := s.dao.TrimCoin(ctx, coinID, s.opts.MaxHistory); err != nil {
		s.logger.Warn("Failed to trim chat history", zap.String("coin", coinID), zap.Error(err))
	} else if trimmed > 0 {
		s.logger.Debug("Trimmed chat history", zap.String("coin", coinID), zap.Int64("deleted", trimmed))
	}

	s.logger.Info("Chat message stored", zap.String("coin", coinID), zap.String("id", message.ID))
	s.publisher.Publish(types.ChatMessage, message)
	return message, nil
}

// History returns the newest messages of a coin in chronological order.
// A non-positive limit uses the default page size; limits above the maximum are capped.
func (s *ChatService) History(ctx context.Context, coinID string, limit int) ([]models.ChatMessage, error) {
	coinID, err := NormalizeCoin(coinID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}
	if limit > s.opts.MaxHistory {
		limit = s.opts.MaxHistory
	}

	messages, err := s.dao.ListByCoin(ctx, coinID, limit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// Clear deletes a coin's history and reports how many messages were removed
func (s *ChatService) Clear(ctx context.Context, coinID string) (int64, error) {
	coinID, err := NormalizeCoin(coinID)
	if err != nil {
		return 0, err
	}

	deleted, err := s.dao.DeleteByCoin(ctx, coinID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Chat history cleared", zap.String("coin", coinID), zap.Int64("deleted", deleted))
	s.publisher.Publish(types.ChatCleared, types.ChatClearedData{CoinID: coinID, Deleted: deleted})
	return deleted, nil
}

// Coins lists coins that have chat history
func (s *ChatService) Coins(ctx context.Context) ([]chatDAO.CoinSummary, error) {
	return s.dao.ListCoins(ctx)
}

// NormalizeCoin trims, lowercases and checks a coin id such as "bitcoin" or "avalanche-2"
func NormalizeCoin(coinID string) (string, error) {
	coinID = strings.ToLower(strings.TrimSpace(coinID))
	if coinID == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCoin)
	}
	if len(coinID) > 64 {
		return "", fmt.Errorf("%w: too long", ErrInvalidCoin)
	}
	for _, r := range coinID {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return "", fmt.Errorf("%w: %q", ErrInvalidCoin, coinID)
		}
	}
	return coinID, nil
}
