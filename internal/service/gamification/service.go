package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/josecalvo/rubi/backend/internal/logger"
	gam "github.com/josecalvo/rubi/backend/internal/model/gamification"
)

var ErrUnknownStat = errors.New("unknown stat")

// Service keeps the points ledger: stats, streaks, achievements, and daily
// challenges. Everything here is called best-effort from the chat pipeline,
// so methods return errors but never panic on missing rows.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log.With("service", "gamification")}
}

// StreakResult reports the outcome of a daily check-in.
type StreakResult struct {
	CurrentStreak int  `json:"currentStreak"`
	IsNewDay      bool `json:"isNewDay"`
}

// Unlock describes a newly unlocked achievement.
type Unlock struct {
	Unlocked    bool
	Achievement *gam.Achievement
}

// AchievementProgress is an achievement annotated with the user's progress.
type AchievementProgress struct {
	gam.Achievement
	Progress   int        `json:"progress"`
	UnlockedAt *time.Time `json:"unlockedAt"`
	IsUnlocked bool       `json:"isUnlocked"`
}

var statColumns = map[string]string{
	gam.StatTotalMessages:       "total_messages",
	gam.StatTotalTasksCompleted: "total_tasks_completed",
	gam.StatGamesPlayed:         "games_played",
	gam.StatGamesWon:            "games_won",
	gam.StatTriviaCorrect:       "trivia_correct",
}

// GetOrCreateStats loads the user's stats row, creating it on first access.
func (s *Service) GetOrCreateStats(ctx context.Context, userID string) (*gam.UserStats, error) {
	var stats gam.UserStats
	err := s.db.WithContext(ctx).
		Where(gam.UserStats{UserID: userID}).
		Attrs(gam.UserStats{Level: 1}).
		FirstOrCreate(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return &stats, nil
}

// AddPoints credits points with an atomic SQL increment, then recomputes the
// level from the stored total. Concurrent awards never lose points; the level
// always settles on the value derived from the final total.
func (s *Service) AddPoints(ctx context.Context, userID string, points int) (*gam.UserStats, error) {
	stats, err := s.GetOrCreateStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(stats).
		Update("total_points", gorm.Expr("total_points + ?", points)).Error
	if err != nil {
		return nil, fmt.Errorf("add points: %w", err)
	}

	if err := s.db.WithContext(ctx).First(stats).Error; err != nil {
		return nil, fmt.Errorf("reload stats: %w", err)
	}
	if level := gam.CalculateLevel(stats.TotalPoints); level != stats.Level {
		if err := s.db.WithContext(ctx).Model(stats).Update("level", level).Error; err != nil {
			return nil, fmt.Errorf("update level: %w", err)
		}
		stats.Level = level
	}
	return stats, nil
}

// IncrementStat bumps one counter atomically in SQL.
func (s *Service) IncrementStat(ctx context.Context, userID, stat string) error {
	column, ok := statColumns[stat]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStat, stat)
	}

	stats, err := s.GetOrCreateStats(ctx, userID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(stats).
		Update(column, gorm.Expr(column+" + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("increment %s: %w", stat, err)
	}
	return nil
}

// UpdateStreak performs the daily check-in. The first activity of a calendar
// day either extends the streak (yesterday was active) or resets it to one.
// Repeat calls on the same day change nothing.
func (s *Service) UpdateStreak(ctx context.Context, userID string) (StreakResult, error) {
	stats, err := s.GetOrCreateStats(ctx, userID)
	if err != nil {
		return StreakResult{}, err
	}

	now := time.Now()
	today := startOfDay(now)

	var lastActive *time.Time
	if stats.LastActiveDate != nil {
		day := startOfDay(*stats.LastActiveDate)
		lastActive = &day
	}

	if lastActive != nil && !lastActive.Before(today) {
		return StreakResult{CurrentStreak: stats.CurrentStreak, IsNewDay: false}, nil
	}

	yesterday := today.AddDate(0, 0, -1)
	streak := 1
	if lastActive != nil && lastActive.Equal(yesterday) {
		streak = stats.CurrentStreak + 1
	}

	longest := stats.LongestStreak
	if streak > longest {
		longest = streak
	}

	err = s.db.WithContext(ctx).Model(stats).Updates(map[string]any{
		"current_streak":   streak,
		"longest_streak":   longest,
		"last_active_date": now,
	}).Error
	if err != nil {
		return StreakResult{}, fmt.Errorf("update streak: %w", err)
	}
	return StreakResult{CurrentStreak: streak, IsNewDay: true}, nil
}

// BumpAchievement advances progress on one achievement and unlocks it once
// the requirement is met, crediting its points. Unknown codes and already
// unlocked achievements are no-ops.
func (s *Service) BumpAchievement(ctx context.Context, userID, code string, increment int) (Unlock, error) {
	if increment <= 0 {
		return Unlock{}, nil
	}

	var achievement gam.Achievement
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&achievement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Unlock{}, nil
	}
	if err != nil {
		return Unlock{}, fmt.Errorf("load achievement %s: %w", code, err)
	}

	var userAch gam.UserAchievement
	err = s.db.WithContext(ctx).
		Where(gam.UserAchievement{UserID: userID, AchievementID: achievement.ID}).
		FirstOrCreate(&userAch).Error
	if err != nil {
		return Unlock{}, fmt.Errorf("load achievement progress: %w", err)
	}

	if userAch.UnlockedAt != nil {
		return Unlock{}, nil
	}

	progress := userAch.Progress + increment
	requirement := achievement.Requirement
	if requirement < 1 {
		requirement = 1
	}

	if progress < requirement {
		err = s.db.WithContext(ctx).Model(&userAch).Update("progress", progress).Error
		if err != nil {
			return Unlock{}, fmt.Errorf("update achievement progress: %w", err)
		}
		return Unlock{}, nil
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(&userAch).Updates(map[string]any{
		"progress":    progress,
		"unlocked_at": now,
	}).Error
	if err != nil {
		return Unlock{}, fmt.Errorf("unlock achievement: %w", err)
	}

	points := achievement.Points
	if points == 0 {
		points = 10
	}
	if _, err := s.AddPoints(ctx, userID, points); err != nil {
		return Unlock{}, err
	}

	s.log.Info("achievement unlocked", "userID", userID, "code", code)
	return Unlock{Unlocked: true, Achievement: &achievement}, nil
}

// Achievements returns every achievement annotated with the user's progress,
// ordered by category.
func (s *Service) Achievements(ctx context.Context, userID string) ([]AchievementProgress, error) {
	var all []gam.Achievement
	if err := s.db.WithContext(ctx).Order("category").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}

	var userAchs []gam.UserAchievement
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&userAchs).Error; err != nil {
		return nil, fmt.Errorf("list achievement progress: %w", err)
	}
	byAchievement := make(map[string]gam.UserAchievement, len(userAchs))
	for _, ua := range userAchs {
		byAchievement[ua.AchievementID.String()] = ua
	}

	result := make([]AchievementProgress, 0, len(all))
	for _, ach := range all {
		entry := AchievementProgress{Achievement: ach}
		if ua, ok := byAchievement[ach.ID.String()]; ok {
			entry.Progress = ua.Progress
			entry.UnlockedAt = ua.UnlockedAt
			entry.IsUnlocked = ua.UnlockedAt != nil
		}
		result = append(result, entry)
	}
	return result, nil
}

// UnlockedAchievements returns the user's unlocked achievements with their
// definitions preloaded.
func (s *Service) UnlockedAchievements(ctx context.Context, userID string) ([]gam.UserAchievement, error) {
	var unlocked []gam.UserAchievement
	err := s.db.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ? AND unlocked_at IS NOT NULL", userID).
		Find(&unlocked).Error
	if err != nil {
		return nil, fmt.Errorf("list unlocked achievements: %w", err)
	}
	return unlocked, nil
}

var dailyChallengeTemplates = []struct {
	Type   string
	Target int
	Bonus  int
}{
	{gam.ChallengeSendMessages, 5, 30},
	{gam.ChallengeCompleteTask, 1, 50},
	{gam.ChallengePlayGame, 1, 40},
}

// GenerateDailyChallenges deletes expired challenges and, when none remain
// for today, creates the standard set expiring at next midnight.
func (s *Service) GenerateDailyChallenges(ctx context.Context, userID string) ([]gam.DailyChallenge, error) {
	now := time.Now()
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at < ?", userID, now).
		Delete(&gam.DailyChallenge{}).Error
	if err != nil {
		return nil, fmt.Errorf("clear expired challenges: %w", err)
	}

	existing, err := s.activeChallenges(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	expiresAt := startOfDay(now).AddDate(0, 0, 1)
	challenges := make([]gam.DailyChallenge, 0, len(dailyChallengeTemplates))
	for _, tpl := range dailyChallengeTemplates {
		challenge := gam.DailyChallenge{
			UserID:        userID,
			ChallengeType: tpl.Type,
			TargetCount:   tpl.Target,
			BonusPoints:   tpl.Bonus,
			ExpiresAt:     expiresAt,
		}
		if err := s.db.WithContext(ctx).Create(&challenge).Error; err != nil {
			return nil, fmt.Errorf("create challenge %s: %w", tpl.Type, err)
		}
		challenges = append(challenges, challenge)
	}
	return challenges, nil
}

// UpdateChallengeProgress advances the active challenge of the given type.
// Completing one credits its bonus points. Returns nil when no matching
// incomplete challenge exists.
func (s *Service) UpdateChallengeProgress(ctx context.Context, userID, challengeType string, increment int) (*gam.DailyChallenge, error) {
	challenges, err := s.activeChallenges(ctx, userID)
	if err != nil {
		return nil, err
	}

	var target *gam.DailyChallenge
	for i := range challenges {
		if challenges[i].ChallengeType == challengeType && !challenges[i].IsCompleted {
			target = &challenges[i]
			break
		}
	}
	if target == nil {
		return nil, nil
	}

	err = s.db.WithContext(ctx).Model(target).
		Update("current_count", gorm.Expr("current_count + ?", increment)).Error
	if err != nil {
		return nil, fmt.Errorf("update challenge: %w", err)
	}
	if err := s.db.WithContext(ctx).First(target).Error; err != nil {
		return nil, fmt.Errorf("reload challenge: %w", err)
	}

	if target.CurrentCount >= target.TargetCount && !target.IsCompleted {
		// Guarded write: of two racing completions, only one pays the bonus.
		res := s.db.WithContext(ctx).Model(&gam.DailyChallenge{}).
			Where("id = ? AND is_completed = ?", target.ID, false).
			Update("is_completed", true)
		if res.Error != nil {
			return nil, fmt.Errorf("complete challenge: %w", res.Error)
		}
		target.IsCompleted = true
		if res.RowsAffected == 1 {
			bonus := target.BonusPoints
			if bonus == 0 {
				bonus = 50
			}
			if _, err := s.AddPoints(ctx, userID, bonus); err != nil {
				return nil, err
			}
		}
	}
	return target, nil
}

// Leaderboard returns the top users by total points.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]gam.UserStats, error) {
	if limit <= 0 {
		limit = 10
	}
	var top []gam.UserStats
	err := s.db.WithContext(ctx).
		Order("total_points DESC").
		Limit(limit).
		Find(&top).Error
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return top, nil
}

func (s *Service) activeChallenges(ctx context.Context, userID string) ([]gam.DailyChallenge, error) {
	var challenges []gam.DailyChallenge
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at >= ?", userID, time.Now()).
		Find(&challenges).Error
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return challenges, nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

var defaultAchievements = []gam.Achievement{
	{Code: "first_message", Name: "First Words", Description: "Send your first message to Rubi", Icon: "MessageCircle", Category: "chat", Points: 10, Requirement: 1},
	{Code: "chatty", Name: "Chatterbox", Description: "Send 50 messages", Icon: "MessagesSquare", Category: "chat", Points: 50, Requirement: 50},
	{Code: "conversationalist", Name: "Conversationalist", Description: "Send 200 messages", Icon: "MessageSquarePlus", Category: "chat", Points: 100, Requirement: 200},
	{Code: "chat_master", Name: "Chat Master", Description: "Send 1000 messages", Icon: "Crown", Category: "chat", Points: 500, Requirement: 1000},

	{Code: "first_task", Name: "Getting Started", Description: "Complete your first task", Icon: "CheckCircle", Category: "tasks", Points: 15, Requirement: 1},
	{Code: "productive", Name: "Productive", Description: "Complete 10 tasks", Icon: "CheckCheck", Category: "tasks", Points: 50, Requirement: 10},
	{Code: "task_master", Name: "Task Master", Description: "Complete 50 tasks", Icon: "ListTodo", Category: "tasks", Points: 150, Requirement: 50},
	{Code: "unstoppable", Name: "Unstoppable", Description: "Complete 200 tasks", Icon: "Rocket", Category: "tasks", Points: 400, Requirement: 200},

	{Code: "streak_3", Name: "Getting Consistent", Description: "Maintain a 3-day streak", Icon: "Flame", Category: "streak", Points: 30, Requirement: 1},
	{Code: "streak_7", Name: "Week Warrior", Description: "Maintain a 7-day streak", Icon: "Zap", Category: "streak", Points: 70, Requirement: 1},
	{Code: "streak_30", Name: "Monthly Master", Description: "Maintain a 30-day streak", Icon: "Star", Category: "streak", Points: 300, Requirement: 1},

	{Code: "first_game", Name: "Let's Play", Description: "Play your first game with Rubi", Icon: "Gamepad2", Category: "games", Points: 20, Requirement: 1},
	{Code: "trivia_winner", Name: "Trivia Champion", Description: "Answer 10 trivia questions correctly", Icon: "Brain", Category: "games", Points: 60, Requirement: 10},
	{Code: "game_lover", Name: "Game Lover", Description: "Play 25 games", Icon: "Trophy", Category: "games", Points: 100, Requirement: 25},
	{Code: "riddle_solver", Name: "Riddle Solver", Description: "Solve 5 riddles correctly", Icon: "Lightbulb", Category: "games", Points: 50, Requirement: 5},

	{Code: "night_owl", Name: "Night Owl", Description: "Chat with Rubi after midnight", Icon: "Moon", Category: "special", Points: 25, Requirement: 1, IsSecret: true},
	{Code: "early_bird", Name: "Early Bird", Description: "Chat with Rubi before 6 AM", Icon: "Sunrise", Category: "special", Points: 25, Requirement: 1, IsSecret: true},
}

// SeedAchievements inserts the default achievement catalog, skipping codes
// that already exist. Safe to run on every startup.
func (s *Service) SeedAchievements(ctx context.Context) error {
	for _, ach := range defaultAchievements {
		entry := ach
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).
			Create(&entry).Error
		if err != nil {
			return fmt.Errorf("seed achievement %s: %w", ach.Code, err)
		}
	}
	return nil
}
