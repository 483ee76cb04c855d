package models

import (
	"time"
)

// ChatMessage is one entry of a coin's chat panel
type ChatMessage struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"` // ULID, sortable by creation time
	CoinID    string    `json:"coinId" gorm:"not null;index:idx_chat_coin_created,priority:1"`
	Author    string    `json:"author" gorm:"not null;default:me"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_chat_coin_created,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
