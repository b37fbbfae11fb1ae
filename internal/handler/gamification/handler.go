package gamification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/josecalvo/rubi/backend/internal/logger"
	"github.com/josecalvo/rubi/backend/internal/middleware"
	gam "github.com/josecalvo/rubi/backend/internal/model/gamification"
	gamService "github.com/josecalvo/rubi/backend/internal/service/gamification"
	"github.com/josecalvo/rubi/backend/pkg/utils"
)

// Handler exposes the points ledger: stats, achievements, challenges,
// leaderboard, and the daily streak check-in.
type Handler struct {
	svc *gamService.Service
	log *logger.Logger
}

func New(svc *gamService.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("handler", "gamification")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/gamification", func(r chi.Router) {
		r.Get("/stats", h.GetStats)
		r.Get("/achievements", h.ListAchievements)
		r.Get("/achievements/unlocked", h.ListUnlocked)
		r.Get("/challenges", h.GetChallenges)
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Post("/streak", h.UpdateStreak)
	})
}

type levelProgress struct {
	Current         int `json:"current"`
	PointsInLevel   int `json:"pointsInLevel"`
	PointsNeeded    int `json:"pointsNeeded"`
	ProgressPercent int `json:"progressPercent"`
}

type statsResponse struct {
	gam.UserStats
	LevelProgress levelProgress `json:"levelProgress"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	stats, err := h.svc.GetOrCreateStats(r.Context(), userID)
	if err != nil {
		h.log.Error("get stats", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	level := stats.Level
	if level < 1 {
		level = 1
	}
	pointsForCurrent := 0
	if level > 1 {
		pointsForCurrent = gam.PointsForNextLevel(level - 1)
	}
	pointsForNext := gam.PointsForNextLevel(level)

	progressPercent := 100
	if span := pointsForNext - pointsForCurrent; span > 0 {
		progressPercent = (stats.TotalPoints - pointsForCurrent) * 100 / span
		if progressPercent > 100 {
			progressPercent = 100
		}
	}

	utils.RespondJSON(w, http.StatusOK, statsResponse{
		UserStats: *stats,
		LevelProgress: levelProgress{
			Current:         level,
			PointsInLevel:   stats.TotalPoints - pointsForCurrent,
			PointsNeeded:    pointsForNext - pointsForCurrent,
			ProgressPercent: progressPercent,
		},
	})
}

func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	achievements, err := h.svc.Achievements(r.Context(), userID)
	if err != nil {
		h.log.Error("list achievements", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to get achievements")
		return
	}
	utils.RespondJSON(w, http.StatusOK, achievements)
}

func (h *Handler) ListUnlocked(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	unlocked, err := h.svc.UnlockedAchievements(r.Context(), userID)
	if err != nil {
		h.log.Error("list unlocked achievements", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to get achievements")
		return
	}
	if unlocked == nil {
		unlocked = []gam.UserAchievement{}
	}
	utils.RespondJSON(w, http.StatusOK, unlocked)
}

func (h *Handler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	challenges, err := h.svc.GenerateDailyChallenges(r.Context(), userID)
	if err != nil {
		h.log.Error("get challenges", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to get challenges")
		return
	}
	utils.RespondJSON(w, http.StatusOK, challenges)
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	leaderboard, err := h.svc.Leaderboard(r.Context(), 20)
	if err != nil {
		h.log.Error("get leaderboard", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}
	utils.RespondJSON(w, http.StatusOK, leaderboard)
}

// UpdateStreak runs the daily check-in and, on a new day, advances the
// streak achievements that the current streak already satisfies.
func (h *Handler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	result, err := h.svc.UpdateStreak(r.Context(), userID)
	if err != nil {
		h.log.Error("update streak", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to update streak")
		return
	}

	if result.IsNewDay {
		for _, milestone := range []struct {
			code string
			days int
		}{
			{"streak_3", 3},
			{"streak_7", 7},
			{"streak_30", 30},
		} {
			if result.CurrentStreak < milestone.days {
				continue
			}
			if _, err := h.svc.BumpAchievement(r.Context(), userID, milestone.code, 1); err != nil {
				h.log.Warn("streak achievement", "code", milestone.code, "error", err)
			}
		}
	}

	utils.RespondJSON(w, http.StatusOK, result)
}
