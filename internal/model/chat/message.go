package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message roles. Messages are immutable and append-only within a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"conversationId"`
	Conversation   *Conversation `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"-"`
	Role           string        `gorm:"not null" json:"role"`
	Content        string        `gorm:"not null" json:"content"`
	CreatedAt      time.Time     `gorm:"not null" json:"createdAt"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
