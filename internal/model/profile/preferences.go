package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Response modes and communication styles a user can pick.
const (
	ModeExpert   = "expert"
	ModeCasual   = "casual"
	ModeBalanced = "balanced"

	StyleFormal   = "formal"
	StyleFriendly = "friendly"
	StylePlayful  = "playful"
)

// ValidMode reports whether m is a known response mode.
func ValidMode(m string) bool {
	return m == ModeExpert || m == ModeCasual || m == ModeBalanced
}

// ValidStyle reports whether s is a known communication style.
func ValidStyle(s string) bool {
	return s == StyleFormal || s == StyleFriendly || s == StylePlayful
}

// Preferences is the long-term per-user profile. One row per user, created
// lazily on first write.
type Preferences struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             string         `gorm:"not null;uniqueIndex;column:user_id" json:"userId"`
	ResponseMode       string         `gorm:"not null;default:'balanced'" json:"responseMode"`
	CommunicationStyle string         `gorm:"not null;default:'friendly'" json:"communicationStyle"`
	UserContext        datatypes.JSON `json:"userContext"`
	FavoriteTopics     datatypes.JSON `json:"favoriteTopics"`
	LastMood           string         `gorm:"not null;default:'neutral'" json:"lastMood"`
	TotalInteractions  int            `gorm:"not null;default:0" json:"totalInteractions"`
	CreatedAt          time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updatedAt"`
}

func (Preferences) TableName() string { return "user_preferences" }

func (p *Preferences) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
