package gamification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/josecalvo/rubi/backend/internal/db"
	"github.com/josecalvo/rubi/backend/internal/logger"
	gam "github.com/josecalvo/rubi/backend/internal/model/gamification"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})
	return NewService(gdb, logger.NewNop())
}

func seededService(t *testing.T) *Service {
	t.Helper()
	svc := newTestService(t)
	if err := svc.SeedAchievements(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc
}

func TestAddPointsRecomputesLevel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	stats, err := svc.AddPoints(ctx, "u1", 50)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if stats.TotalPoints != 50 || stats.Level != 1 {
		t.Fatalf("stats = %d points, level %d", stats.TotalPoints, stats.Level)
	}

	stats, err = svc.AddPoints(ctx, "u1", 75)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	// 125 points crosses the 100-point threshold into level 2.
	if stats.TotalPoints != 125 || stats.Level != 2 {
		t.Fatalf("stats = %d points, level %d", stats.TotalPoints, stats.Level)
	}
}

func TestAddPointsConcurrentAwards(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Shared-cache sqlite rejects concurrent writers, so funnel the
	// interleaved calls through one connection.
	sqlDB, err := svc.db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := svc.GetOrCreateStats(ctx, "u1"); err != nil {
		t.Fatalf("stats: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddPoints(ctx, "u1", 15); err != nil {
				t.Errorf("add points: %v", err)
			}
		}()
	}
	wg.Wait()

	stats, err := svc.GetOrCreateStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPoints != 120 {
		t.Fatalf("total points = %d, want 120: an award was lost", stats.TotalPoints)
	}
	if want := gam.CalculateLevel(120); stats.Level != want {
		t.Fatalf("level = %d, want %d", stats.Level, want)
	}
}

func TestChallengeBonusPaidOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sqlDB, err := svc.db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := svc.GenerateDailyChallenges(ctx, "u1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.GetOrCreateStats(ctx, "u1"); err != nil {
		t.Fatalf("stats: %v", err)
	}

	// Five simultaneous message bumps exactly fill the send_messages target.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.UpdateChallengeProgress(ctx, "u1", gam.ChallengeSendMessages, 1); err != nil {
				t.Errorf("progress: %v", err)
			}
		}()
	}
	wg.Wait()

	challenges, err := svc.GenerateDailyChallenges(ctx, "u1")
	if err != nil {
		t.Fatalf("challenges: %v", err)
	}
	var done *gam.DailyChallenge
	for i := range challenges {
		if challenges[i].ChallengeType == gam.ChallengeSendMessages {
			done = &challenges[i]
		}
	}
	if done == nil || done.CurrentCount != 5 || !done.IsCompleted {
		t.Fatalf("challenge = %+v", done)
	}

	stats, err := svc.GetOrCreateStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPoints != 30 {
		t.Fatalf("total points = %d, want the 30-point bonus exactly once", stats.TotalPoints)
	}
}

func TestIncrementStat(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.IncrementStat(ctx, "u1", "typo_stat"); !errors.Is(err, ErrUnknownStat) {
		t.Fatalf("unknown stat should be rejected, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.IncrementStat(ctx, "u1", gam.StatGamesPlayed); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := svc.IncrementStat(ctx, "u1", gam.StatTriviaCorrect); err != nil {
		t.Fatalf("increment: %v", err)
	}

	stats, err := svc.GetOrCreateStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.GamesPlayed != 2 || stats.TriviaCorrect != 1 || stats.TotalMessages != 0 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestUpdateStreak(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.UpdateStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if !first.IsNewDay || first.CurrentStreak != 1 {
		t.Fatalf("first check-in = %+v", first)
	}

	// Same day again is a no-op.
	again, err := svc.UpdateStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if again.IsNewDay || again.CurrentStreak != 1 {
		t.Fatalf("same-day check-in = %+v", again)
	}

	// Active yesterday: the streak extends.
	yesterday := time.Now().AddDate(0, 0, -1)
	seedLastActive(t, svc, "u1", yesterday, 4, 6)
	extended, err := svc.UpdateStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if !extended.IsNewDay || extended.CurrentStreak != 5 {
		t.Fatalf("consecutive check-in = %+v", extended)
	}

	// A gap resets to one, but the longest streak is kept.
	lastWeek := time.Now().AddDate(0, 0, -7)
	seedLastActive(t, svc, "u1", lastWeek, 5, 6)
	reset, err := svc.UpdateStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if !reset.IsNewDay || reset.CurrentStreak != 1 {
		t.Fatalf("post-gap check-in = %+v", reset)
	}
	stats, _ := svc.GetOrCreateStats(ctx, "u1")
	if stats.LongestStreak != 6 {
		t.Fatalf("longest streak = %d, want 6", stats.LongestStreak)
	}
}

func seedLastActive(t *testing.T, svc *Service, userID string, lastActive time.Time, current, longest int) {
	t.Helper()
	err := svc.db.Model(&gam.UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"last_active_date": lastActive,
			"current_streak":   current,
			"longest_streak":   longest,
		}).Error
	if err != nil {
		t.Fatalf("seed last active: %v", err)
	}
}

func TestBumpAchievementUnlocks(t *testing.T) {
	svc := seededService(t)
	ctx := context.Background()

	// Unknown codes are silently ignored.
	if unlock, err := svc.BumpAchievement(ctx, "u1", "no_such_code", 1); err != nil || unlock.Unlocked {
		t.Fatalf("unknown code: unlock=%+v err=%v", unlock, err)
	}

	// first_message unlocks on the first bump and credits its points.
	unlock, err := svc.BumpAchievement(ctx, "u1", "first_message", 1)
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if !unlock.Unlocked || unlock.Achievement.Code != "first_message" {
		t.Fatalf("expected unlock, got %+v", unlock)
	}
	stats, _ := svc.GetOrCreateStats(ctx, "u1")
	if stats.TotalPoints != 10 {
		t.Fatalf("points = %d, want 10", stats.TotalPoints)
	}

	// Bumping an unlocked achievement changes nothing.
	unlock, err = svc.BumpAchievement(ctx, "u1", "first_message", 1)
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if unlock.Unlocked {
		t.Fatal("achievement unlocked twice")
	}
	stats, _ = svc.GetOrCreateStats(ctx, "u1")
	if stats.TotalPoints != 10 {
		t.Fatalf("points changed after re-bump: %d", stats.TotalPoints)
	}

	// riddle_solver needs five correct riddles.
	for i := 0; i < 4; i++ {
		if unlock, err = svc.BumpAchievement(ctx, "u1", "riddle_solver", 1); err != nil || unlock.Unlocked {
			t.Fatalf("premature unlock at %d: %+v err=%v", i, unlock, err)
		}
	}
	if unlock, err = svc.BumpAchievement(ctx, "u1", "riddle_solver", 1); err != nil || !unlock.Unlocked {
		t.Fatalf("expected unlock on fifth riddle: %+v err=%v", unlock, err)
	}
}

func TestAchievementsListing(t *testing.T) {
	svc := seededService(t)
	ctx := context.Background()

	if _, err := svc.BumpAchievement(ctx, "u1", "first_game", 1); err != nil {
		t.Fatalf("bump: %v", err)
	}

	all, err := svc.Achievements(ctx, "u1")
	if err != nil {
		t.Fatalf("achievements: %v", err)
	}
	if len(all) != len(defaultAchievements) {
		t.Fatalf("got %d achievements, want %d", len(all), len(defaultAchievements))
	}
	var found bool
	for _, entry := range all {
		if entry.Code == "first_game" {
			found = true
			if !entry.IsUnlocked || entry.UnlockedAt == nil {
				t.Fatalf("first_game should be unlocked: %+v", entry)
			}
		}
	}
	if !found {
		t.Fatal("first_game missing from listing")
	}

	unlocked, err := svc.UnlockedAchievements(ctx, "u1")
	if err != nil {
		t.Fatalf("unlocked: %v", err)
	}
	if len(unlocked) != 1 || unlocked[0].Achievement == nil || unlocked[0].Achievement.Code != "first_game" {
		t.Fatalf("unlocked listing = %+v", unlocked)
	}
}

func TestDailyChallenges(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	challenges, err := svc.GenerateDailyChallenges(ctx, "u1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(challenges) != 3 {
		t.Fatalf("got %d challenges, want 3", len(challenges))
	}

	// Generating again returns the same set instead of duplicating.
	again, err := svc.GenerateDailyChallenges(ctx, "u1")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(again) != 3 {
		t.Fatalf("regeneration duplicated challenges: %d", len(again))
	}

	// play_game has target 1, so one bump completes it and pays the bonus.
	challenge, err := svc.UpdateChallengeProgress(ctx, "u1", gam.ChallengePlayGame, 1)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if challenge == nil || !challenge.IsCompleted {
		t.Fatalf("play_game should complete: %+v", challenge)
	}
	stats, _ := svc.GetOrCreateStats(ctx, "u1")
	if stats.TotalPoints != 40 {
		t.Fatalf("bonus points = %d, want 40", stats.TotalPoints)
	}

	// A completed challenge is no longer progressable.
	challenge, err = svc.UpdateChallengeProgress(ctx, "u1", gam.ChallengePlayGame, 1)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if challenge != nil {
		t.Fatalf("completed challenge progressed again: %+v", challenge)
	}

	// send_messages needs five bumps.
	for i := 0; i < 4; i++ {
		challenge, err = svc.UpdateChallengeProgress(ctx, "u1", gam.ChallengeSendMessages, 1)
		if err != nil {
			t.Fatalf("progress: %v", err)
		}
		if challenge.IsCompleted {
			t.Fatalf("send_messages completed early at %d", i+1)
		}
	}
	challenge, err = svc.UpdateChallengeProgress(ctx, "u1", gam.ChallengeSendMessages, 1)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !challenge.IsCompleted {
		t.Fatalf("send_messages should complete on fifth bump: %+v", challenge)
	}
}

func TestLeaderboard(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, entry := range []struct {
		userID string
		points int
	}{{"low", 10}, {"high", 500}, {"mid", 120}} {
		if _, err := svc.AddPoints(ctx, entry.userID, entry.points); err != nil {
			t.Fatalf("add points: %v", err)
		}
	}

	top, err := svc.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "high" || top[1].UserID != "mid" {
		t.Fatalf("leaderboard order wrong: %+v", top)
	}
}
