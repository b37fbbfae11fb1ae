package gamification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Achievement is a static reward definition, seeded at startup.
type Achievement struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string    `gorm:"not null;uniqueIndex" json:"code"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"not null" json:"description"`
	Icon        string    `gorm:"not null" json:"icon"`
	Category    string    `gorm:"not null" json:"category"`
	Points      int       `gorm:"not null;default:10" json:"points"`
	Requirement int       `gorm:"not null;default:1" json:"requirement"`
	IsSecret    bool      `gorm:"not null;default:false" json:"isSecret"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}

func (Achievement) TableName() string { return "achievements" }

func (a *Achievement) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// UserAchievement tracks one user's progress toward one achievement.
type UserAchievement struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string       `gorm:"not null;index;column:user_id" json:"userId"`
	AchievementID uuid.UUID    `gorm:"type:uuid;not null;index" json:"achievementId"`
	Achievement   *Achievement `gorm:"foreignKey:AchievementID;references:ID" json:"achievement,omitempty"`
	Progress      int          `gorm:"not null;default:0" json:"progress"`
	UnlockedAt    *time.Time   `json:"unlockedAt"`
	CreatedAt     time.Time    `gorm:"not null" json:"createdAt"`
}

func (UserAchievement) TableName() string { return "user_achievements" }

func (ua *UserAchievement) BeforeCreate(*gorm.DB) error {
	if ua.ID == uuid.Nil {
		ua.ID = uuid.New()
	}
	return nil
}

// UserStats carries the per-user counters and streaks. One row per user.
type UserStats struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              string     `gorm:"not null;uniqueIndex;column:user_id" json:"userId"`
	TotalPoints         int        `gorm:"not null;default:0" json:"totalPoints"`
	Level               int        `gorm:"not null;default:1" json:"level"`
	CurrentStreak       int        `gorm:"not null;default:0" json:"currentStreak"`
	LongestStreak       int        `gorm:"not null;default:0" json:"longestStreak"`
	LastActiveDate      *time.Time `json:"lastActiveDate"`
	TotalMessages       int        `gorm:"not null;default:0" json:"totalMessages"`
	TotalTasksCompleted int        `gorm:"not null;default:0" json:"totalTasksCompleted"`
	GamesPlayed         int        `gorm:"not null;default:0" json:"gamesPlayed"`
	GamesWon            int        `gorm:"not null;default:0" json:"gamesWon"`
	TriviaCorrect       int        `gorm:"not null;default:0" json:"triviaCorrect"`
	CreatedAt           time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"not null" json:"updatedAt"`
}

func (UserStats) TableName() string { return "user_stats" }

func (s *UserStats) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Counter names accepted by the ledger's IncrementStat.
const (
	StatTotalMessages       = "total_messages"
	StatTotalTasksCompleted = "total_tasks_completed"
	StatGamesPlayed         = "games_played"
	StatGamesWon            = "games_won"
	StatTriviaCorrect       = "trivia_correct"
)

// DailyChallenge is a per-user goal that expires at the next midnight.
type DailyChallenge struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string    `gorm:"not null;index;column:user_id" json:"userId"`
	ChallengeType string    `gorm:"not null" json:"challengeType"`
	TargetCount   int       `gorm:"not null" json:"targetCount"`
	CurrentCount  int       `gorm:"not null;default:0" json:"currentCount"`
	BonusPoints   int       `gorm:"not null;default:50" json:"bonusPoints"`
	IsCompleted   bool      `gorm:"not null;default:false" json:"isCompleted"`
	ExpiresAt     time.Time `gorm:"not null" json:"expiresAt"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
}

func (DailyChallenge) TableName() string { return "daily_challenges" }

func (dc *DailyChallenge) BeforeCreate(*gorm.DB) error {
	if dc.ID == uuid.Nil {
		dc.ID = uuid.New()
	}
	return nil
}

// Challenge types consumed by the chat pipeline.
const (
	ChallengeSendMessages = "send_messages"
	ChallengeCompleteTask = "complete_task"
	ChallengePlayGame     = "play_game"
)

// Cumulative points needed to reach each level (index 0 = level 1).
var levelThresholds = []int{
	0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500,
	5500, 6600, 7800, 9100, 10500, 12000, 13600, 15300, 17100, 19000,
}

// CalculateLevel maps a point total to a level, starting at 1.
func CalculateLevel(points int) int {
	for i := len(levelThresholds) - 1; i >= 0; i-- {
		if points >= levelThresholds[i] {
			return i + 1
		}
	}
	return 1
}

// PointsForNextLevel returns the cumulative points required to leave the
// given level. Past the table's end the final threshold is returned.
func PointsForNextLevel(level int) int {
	if level >= len(levelThresholds) {
		return levelThresholds[len(levelThresholds)-1]
	}
	return levelThresholds[level]
}
