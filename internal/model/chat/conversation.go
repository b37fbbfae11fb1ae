package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is owned by exactly one user; deleting it cascades messages.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index;column:user_id" json:"userId"`
	Title     string    `gorm:"not null;default:'New Chat'" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

func (Conversation) TableName() string { return "conversations" }

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
