package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/josecalvo/rubi/backend/internal/model/chat"
)

// ErrConversationNotFound covers both missing conversations and ones owned
// by another user; callers cannot tell the two apart.
var ErrConversationNotFound = errors.New("conversation not found")

// Service persists conversations and their messages.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateConversation opens a new conversation for the user. An empty title
// falls back to the column default.
func (s *Service) CreateConversation(ctx context.Context, userID, title string) (*chat.Conversation, error) {
	conversation := chat.Conversation{UserID: userID, Title: title}
	if title == "" {
		conversation.Title = "New Chat"
	}
	if err := s.db.WithContext(ctx).Create(&conversation).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conversation, nil
}

// ListConversations returns the user's conversations, newest first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var conversations []chat.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

// GetConversation loads one conversation, enforcing ownership.
func (s *Service) GetConversation(ctx context.Context, userID string, id uuid.UUID) (*chat.Conversation, error) {
	var conversation chat.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conversation, nil
}

// RenameConversation updates the title of a conversation the user owns.
func (s *Service) RenameConversation(ctx context.Context, userID string, id uuid.UUID, title string) error {
	result := s.db.WithContext(ctx).
		Model(&chat.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	if result.Error != nil {
		return fmt.Errorf("rename conversation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// DeleteConversation removes the conversation and all of its messages.
func (s *Service) DeleteConversation(ctx context.Context, userID string, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation chat.Conversation
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conversation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		if err != nil {
			return fmt.Errorf("load conversation: %w", err)
		}

		if err := tx.Where("conversation_id = ?", id).Delete(&chat.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := tx.Delete(&conversation).Error; err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		return nil
	})
}

// AppendMessage stores one message in a conversation the user owns.
func (s *Service) AppendMessage(ctx context.Context, userID string, conversationID uuid.UUID, role, content string) (*chat.Message, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	message := chat.Message{ConversationID: conversationID, Role: role, Content: content}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &message, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *Service) ListMessages(ctx context.Context, userID string, conversationID uuid.UUID) ([]chat.Message, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	var messages []chat.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
