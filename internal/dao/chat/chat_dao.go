package chat

import (
	"context"
	"fmt"

	"cryptodash/internal/models"

	"gorm.io/gorm"
)

// ChatDAO handles database operations for chat messages
type ChatDAO struct {
	db *gorm.DB
}

// ChatDAOInterface defines the contract for chat message data access
type ChatDAOInterface interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	ListByCoin(ctx context.Context, coinID string, limit int) ([]models.ChatMessage, error)
	CountByCoin(ctx context.Context, coinID string) (int64, error)
	DeleteByCoin(ctx context.Context, coinID string) (int64, error)
	TrimCoin(ctx context.Context, coinID string, keep int) (int64, error)
	ListCoins(ctx context.Context) ([]CoinSummary, error)
}

// CoinSummary describes one coin that has chat history
type CoinSummary struct {
	CoinID   string `json:"coinId"`
	Messages int64  `json:"messages"`
}

// NewChatDAO creates a new chat DAO instance
func NewChatDAO(db *gorm.DB) ChatDAOInterface {
	return &ChatDAO{
		db: db,
	}
}

// Create inserts a message
func (dao *ChatDAO) Create(ctx context.Context, message *models.ChatMessage) error {
	if err := dao.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// ListByCoin returns the newest limit messages of a coin in chronological order
func (dao *ChatDAO) ListByCoin(ctx context.Context, coinID string, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	query := dao.db.WithContext(ctx).
		Where("coin_id = ?", coinID).
		Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	// ULIDs sort by creation time; flip newest-first into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CountByCoin returns how many messages a coin has
func (dao *ChatDAO) CountByCoin(ctx context.Context, coinID string) (int64, error) {
	var count int64
	if err := dao.db.WithContext(ctx).Model(&models.ChatMessage{}).Where("coin_id = ?", coinID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return count, nil
}

// DeleteByCoin removes a coin's whole history
func (dao *ChatDAO) DeleteByCoin(ctx context.Context, coinID string) (int64, error) {
	result := dao.db.WithContext(ctx).Where("coin_id = ?", coinID).Delete(&models.ChatMessage{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete chat messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// TrimCoin deletes all but the newest keep messages of a coin
func (dao *ChatDAO) TrimCoin(ctx context.Context, coinID string, keep int) (int64, error) {
	if keep < 1 {
		return dao.DeleteByCoin(ctx, coinID)
	}

	var cutoff []string
	err := dao.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("coin_id = ?", coinID).
		Order("id DESC").
		Offset(keep-1).
		Limit(1).
		Pluck("id", &cutoff).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find chat trim cutoff: %w", err)
	}
	if len(cutoff) == 0 {
		return 0, nil
	}

	result := dao.db.WithContext(ctx).
		Where("coin_id = ? AND id < ?", coinID, cutoff[0]).
		Delete(&models.ChatMessage{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to trim chat messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListCoins returns every coin with at least one message
func (dao *ChatDAO) ListCoins(ctx context.Context) ([]CoinSummary, error) {
	var summaries []CoinSummary
	err := dao.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Select("coin_id, COUNT(*) AS messages").
		Group("coin_id").
		Order("coin_id").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat coins: %w", err)
	}
	return summaries, nil
}
