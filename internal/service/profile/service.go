package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/josecalvo/rubi/backend/internal/model/profile"
)

var ErrInvalidPreference = errors.New("invalid preference value")

// Service manages per-user preferences and the learned long-term context.
// Reads lazily create a default row so callers never see a missing profile.
type Service struct {
	db *gorm.DB

	mu         sync.Mutex
	mergeLocks map[string]*sync.Mutex
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, mergeLocks: make(map[string]*sync.Mutex)}
}

func (s *Service) mergeLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.mergeLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.mergeLocks[userID] = lock
	}
	return lock
}

// Get loads the user's preferences, creating defaults on first access.
func (s *Service) Get(ctx context.Context, userID string) (*profile.Preferences, error) {
	var prefs profile.Preferences
	err := s.db.WithContext(ctx).
		Where(profile.Preferences{UserID: userID}).
		Attrs(profile.Preferences{
			ResponseMode:       profile.ModeBalanced,
			CommunicationStyle: profile.StyleFriendly,
			LastMood:           "neutral",
		}).
		FirstOrCreate(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return &prefs, nil
}

// Update applies the provided preference changes. Nil fields stay untouched;
// invalid mode or style values are rejected.
func (s *Service) Update(ctx context.Context, userID string, responseMode, communicationStyle *string, favoriteTopics []string) (*profile.Preferences, error) {
	if responseMode != nil && !profile.ValidMode(*responseMode) {
		return nil, fmt.Errorf("%w: response mode %q", ErrInvalidPreference, *responseMode)
	}
	if communicationStyle != nil && !profile.ValidStyle(*communicationStyle) {
		return nil, fmt.Errorf("%w: communication style %q", ErrInvalidPreference, *communicationStyle)
	}

	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if responseMode != nil {
		updates["response_mode"] = *responseMode
	}
	if communicationStyle != nil {
		updates["communication_style"] = *communicationStyle
	}
	if favoriteTopics != nil {
		encoded, err := json.Marshal(favoriteTopics)
		if err != nil {
			return nil, fmt.Errorf("encode favorite topics: %w", err)
		}
		updates["favorite_topics"] = datatypes.JSON(encoded)
	}
	if len(updates) == 0 {
		return prefs, nil
	}

	if err := s.db.WithContext(ctx).Model(prefs).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return s.Get(ctx, userID)
}

// SetLastMood records the avatar mood chosen for the latest turn.
func (s *Service) SetLastMood(ctx context.Context, userID, mood string) error {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(prefs).Update("last_mood", mood).Error; err != nil {
		return fmt.Errorf("set last mood: %w", err)
	}
	return nil
}

// IncrementInteractions bumps the interaction counter atomically in SQL, so
// concurrent turns never lose increments.
func (s *Service) IncrementInteractions(ctx context.Context, userID string) error {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(prefs).
		Update("total_interactions", gorm.Expr("total_interactions + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("increment interactions: %w", err)
	}
	return nil
}

// LearnedContext decodes the stored long-term context. A missing or empty
// column yields a zero value.
func (s *Service) LearnedContext(ctx context.Context, userID string) (profile.Learned, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return profile.Learned{}, err
	}
	return decodeLearned(prefs.UserContext)
}

// MergeContext folds newly learned items into the stored context. Merges for
// one user are serialized in process, so two concurrent extractions cannot
// overwrite each other's items.
func (s *Service) MergeContext(ctx context.Context, userID string, incoming profile.Learned) error {
	if incoming.IsEmpty() {
		return nil
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	lock := s.mergeLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prefs profile.Preferences
		if err := tx.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
			return fmt.Errorf("load context: %w", err)
		}

		existing, err := decodeLearned(prefs.UserContext)
		if err != nil {
			return err
		}
		merged := existing.Merge(incoming)

		encoded, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode context: %w", err)
		}
		if err := tx.Model(&prefs).Update("user_context", datatypes.JSON(encoded)).Error; err != nil {
			return fmt.Errorf("store context: %w", err)
		}
		return nil
	})
}

// FavoriteTopics decodes the stored topics list, tolerating an unset column.
func FavoriteTopics(prefs *profile.Preferences) []string {
	if len(prefs.FavoriteTopics) == 0 {
		return nil
	}
	var topics []string
	if err := json.Unmarshal(prefs.FavoriteTopics, &topics); err != nil {
		return nil
	}
	return topics
}

func decodeLearned(raw datatypes.JSON) (profile.Learned, error) {
	if len(raw) == 0 {
		return profile.Learned{}, nil
	}
	var learned profile.Learned
	if err := json.Unmarshal(raw, &learned); err != nil {
		return profile.Learned{}, fmt.Errorf("decode context: %w", err)
	}
	return learned, nil
}
