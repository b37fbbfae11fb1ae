package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/josecalvo/rubi/backend/internal/handler/chat"
	gamHandler "github.com/josecalvo/rubi/backend/internal/handler/gamification"
	streamHandler "github.com/josecalvo/rubi/backend/internal/handler/stream"
	"github.com/josecalvo/rubi/backend/internal/logger"
	"github.com/josecalvo/rubi/backend/internal/middleware"
	chatService "github.com/josecalvo/rubi/backend/internal/service/chat"
	"github.com/josecalvo/rubi/backend/internal/service/games"
	gamService "github.com/josecalvo/rubi/backend/internal/service/gamification"
	profileService "github.com/josecalvo/rubi/backend/internal/service/profile"
	"github.com/josecalvo/rubi/backend/pkg/utils"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Replier         streamHandler.Replier
	Learner         streamHandler.Learner
	ChatSvc         *chatService.Service
	ProfileSvc      *profileService.Service
	GamSvc          *gamService.Service
	Engine          *games.Engine
	StreamTimeout   time.Duration
	LearningEnabled bool
	Log             *logger.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatH := chatHandler.New(deps.ChatSvc, deps.ProfileSvc, deps.Log)
	gamH := gamHandler.New(deps.GamSvc, deps.Log)
	streamH := streamHandler.New(
		deps.Replier,
		deps.Learner,
		deps.ChatSvc,
		deps.ProfileSvc,
		deps.GamSvc,
		deps.Engine,
		deps.StreamTimeout,
		deps.LearningEnabled,
		deps.Log,
	)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Identity)

		chatH.RegisterRoutes(api)
		gamH.RegisterRoutes(api)
		streamH.RegisterRoutes(api)
	})

	return r
}
