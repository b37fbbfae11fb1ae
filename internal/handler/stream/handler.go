package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cloudwego/eino/schema"

	"github.com/josecalvo/rubi/backend/internal/analysis/emotion"
	"github.com/josecalvo/rubi/backend/internal/logger"
	"github.com/josecalvo/rubi/backend/internal/middleware"
	chatmodel "github.com/josecalvo/rubi/backend/internal/model/chat"
	gam "github.com/josecalvo/rubi/backend/internal/model/gamification"
	profilemodel "github.com/josecalvo/rubi/backend/internal/model/profile"
	"github.com/josecalvo/rubi/backend/internal/service/ai"
	chatService "github.com/josecalvo/rubi/backend/internal/service/chat"
	"github.com/josecalvo/rubi/backend/internal/service/games"
	gamService "github.com/josecalvo/rubi/backend/internal/service/gamification"
	profileService "github.com/josecalvo/rubi/backend/internal/service/profile"
	"github.com/josecalvo/rubi/backend/pkg/utils"
)

const maxMessageLength = 10000

// Replier is the LLM surface the orchestrator needs. Satisfied by
// ai.Service; tests substitute a canned stream.
type Replier interface {
	StreamReply(ctx context.Context, systemPrompt string, history []chatmodel.Message, userMessage string) (*schema.StreamReader[*schema.Message], error)
}

// Learner extracts long-term facts from a finished exchange. Satisfied by
// learning.Extractor.
type Learner interface {
	Extract(ctx context.Context, userMessage, assistantResponse, existingContext string) (*profilemodel.Learned, error)
}

// Handler runs the streaming chat turn: emotion detection, gamification
// side effects, mini-game short circuits, and the token stream itself.
type Handler struct {
	replier         Replier
	learner         Learner
	chatSvc         *chatService.Service
	profileSvc      *profileService.Service
	gamSvc          *gamService.Service
	engine          *games.Engine
	streamTimeout   time.Duration
	learningEnabled bool
	log             *logger.Logger
	now             func() time.Time
}

func New(
	replier Replier,
	learner Learner,
	chatSvc *chatService.Service,
	profileSvc *profileService.Service,
	gamSvc *gamService.Service,
	engine *games.Engine,
	streamTimeout time.Duration,
	learningEnabled bool,
	log *logger.Logger,
) *Handler {
	return &Handler{
		replier:         replier,
		learner:         learner,
		chatSvc:         chatSvc,
		profileSvc:      profileSvc,
		gamSvc:          gamSvc,
		engine:          engine,
		streamTimeout:   streamTimeout,
		learningEnabled: learningEnabled,
		log:             log.With("handler", "stream"),
		now:             time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations/{conversationID}/messages", h.SendMessage)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type emotionFrame struct {
	Emotion emotion.Result `json:"emotion"`
}

type contentFrame struct {
	Content string `json:"content"`
}

type doneFrame struct {
	Done bool `json:"done"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// SendMessage handles one chat turn end to end over SSE.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" || len(req.Content) > maxMessageLength {
		utils.RespondError(w, http.StatusBadRequest, "content must be between 1 and 10000 characters")
		return
	}

	if _, err := h.chatSvc.GetConversation(ctx, userID, conversationID); err != nil {
		if errors.Is(err, chatService.ErrConversationNotFound) {
			utils.RespondError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.log.Error("load conversation", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	detected := emotion.Detect(req.Content)
	if err := h.profileSvc.SetLastMood(ctx, userID, string(detected.PrimaryEmotion)); err != nil {
		h.log.Warn("set last mood", "error", err)
	}

	if _, err := h.chatSvc.AppendMessage(ctx, userID, conversationID, chatmodel.RoleUser, req.Content); err != nil {
		h.log.Error("persist user message", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	h.recordActivity(ctx, userID)

	// An active game captures the message as its answer. The engine consumes
	// the slot atomically, so a second concurrent answer falls through here.
	outcome, err := h.engine.SubmitAnswer(ctx, userID, req.Content)
	if err != nil {
		h.log.Warn("resolve game answer", "error", err)
	}
	if outcome != nil {
		h.handleGameAnswer(ctx, w, userID, conversationID, *outcome)
		return
	}

	if h.engine.IsStartCommand(req.Content) {
		h.handleGameStart(ctx, w, userID, conversationID, req.Content)
		return
	}

	h.streamAssistantReply(ctx, w, userID, conversationID, req.Content, detected)
}

// recordActivity applies the per-message gamification side effects. All of
// it is best-effort: a failed ledger write never fails the chat turn.
func (h *Handler) recordActivity(ctx context.Context, userID string) {
	if _, err := h.gamSvc.UpdateStreak(ctx, userID); err != nil {
		h.log.Warn("update streak", "error", err)
	}
	if err := h.gamSvc.IncrementStat(ctx, userID, gam.StatTotalMessages); err != nil {
		h.log.Warn("increment messages", "error", err)
	}
	for _, code := range []string{"first_message", "chatty", "conversationalist", "chat_master"} {
		h.bumpAchievement(ctx, userID, code)
	}
	if _, err := h.gamSvc.UpdateChallengeProgress(ctx, userID, gam.ChallengeSendMessages, 1); err != nil {
		h.log.Warn("challenge progress", "error", err)
	}

	hour := h.now().Hour()
	if hour >= 0 && hour < 6 {
		h.bumpAchievement(ctx, userID, "early_bird")
	}
	if hour >= 0 && hour < 4 {
		h.bumpAchievement(ctx, userID, "night_owl")
	}
}

func (h *Handler) bumpAchievement(ctx context.Context, userID, code string) {
	if _, err := h.gamSvc.BumpAchievement(ctx, userID, code, 1); err != nil {
		h.log.Warn("achievement progress", "code", code, "error", err)
	}
}

// handleGameAnswer applies a resolved game outcome's bookkeeping and replies
// with a canned SSE response instead of calling the model.
func (h *Handler) handleGameAnswer(ctx context.Context, w http.ResponseWriter, userID string, conversationID uuid.UUID, outcome games.Outcome) {
	if outcome.Result == games.ResultCorrect {
		if _, err := h.gamSvc.AddPoints(ctx, userID, outcome.Points); err != nil {
			h.log.Warn("award game points", "error", err)
		}
		if err := h.gamSvc.IncrementStat(ctx, userID, gam.StatGamesWon); err != nil {
			h.log.Warn("increment games won", "error", err)
		}
		switch outcome.Game {
		case games.KindTrivia:
			if err := h.gamSvc.IncrementStat(ctx, userID, gam.StatTriviaCorrect); err != nil {
				h.log.Warn("increment trivia correct", "error", err)
			}
			h.bumpAchievement(ctx, userID, "trivia_winner")
		case games.KindRiddle:
			h.bumpAchievement(ctx, userID, "riddle_solver")
		}
	}

	// A wrong riddle guess keeps the game running; the played/first_game
	// bookkeeping waits until the game actually ends.
	if outcome.Result != games.ResultHint {
		if err := h.gamSvc.IncrementStat(ctx, userID, gam.StatGamesPlayed); err != nil {
			h.log.Warn("increment games played", "error", err)
		}
		h.bumpAchievement(ctx, userID, "first_game")
		h.bumpAchievement(ctx, userID, "game_lover")
		if _, err := h.gamSvc.UpdateChallengeProgress(ctx, userID, gam.ChallengePlayGame, 1); err != nil {
			h.log.Warn("challenge progress", "error", err)
		}
	}

	h.respondCanned(ctx, w, userID, conversationID, outcome.Message)
}

// handleGameStart opens a fresh game and replies with its prompt.
func (h *Handler) handleGameStart(ctx context.Context, w http.ResponseWriter, userID string, conversationID uuid.UUID, command string) {
	content, err := h.engine.Start(ctx, userID, h.engine.ClassifyStart(command))
	if err != nil {
		h.log.Error("start game", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	h.respondCanned(ctx, w, userID, conversationID, content)
}

// respondCanned persists a fixed assistant reply and sends it as a single
// SSE content frame followed by done.
func (h *Handler) respondCanned(ctx context.Context, w http.ResponseWriter, userID string, conversationID uuid.UUID, content string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if _, err := h.chatSvc.AppendMessage(ctx, userID, conversationID, chatmodel.RoleAssistant, content); err != nil {
		h.log.Error("persist assistant message", "error", err)
	}

	utils.SendSSEChunk(w, flusher, contentFrame{Content: content})
	utils.SendSSEChunk(w, flusher, doneFrame{Done: true})
}

// streamAssistantReply runs the model-backed branch: personalized system
// prompt, emotion frame, token stream, persistence, and detached learning.
func (h *Handler) streamAssistantReply(ctx context.Context, w http.ResponseWriter, userID string, conversationID uuid.UUID, userMessage string, detected emotion.Result) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if h.replier == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
		return
	}

	prefs, err := h.profileSvc.Get(ctx, userID)
	if err != nil {
		h.log.Error("load preferences", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	learned, err := h.profileSvc.LearnedContext(ctx, userID)
	if err != nil {
		h.log.Warn("load learned context", "error", err)
	}

	messages, err := h.chatSvc.ListMessages(ctx, userID, conversationID)
	if err != nil {
		h.log.Error("load history", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	// The user message just persisted is the query; everything before it
	// is history.
	history := messages
	if len(history) > 0 {
		history = history[:len(history)-1]
	}

	systemPrompt := ai.BasePersona + ai.ComposeContextPrompt(
		prefs.ResponseMode,
		prefs.CommunicationStyle,
		detected,
		learned.Render(),
		profileService.FavoriteTopics(prefs),
	)

	utils.SetupSSEHeaders(w)
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	utils.SendSSEChunk(w, flusher, emotionFrame{Emotion: detected})
	fmt.Fprint(w, "retry: 10000\n\n")
	flusher.Flush()

	streamCtx, cancel := context.WithTimeout(ctx, h.streamTimeout)
	defer cancel()

	stream, err := h.replier.StreamReply(streamCtx, systemPrompt, history, userMessage)
	if err != nil {
		h.log.Error("open reply stream", "error", err)
		utils.SendSSEChunk(w, flusher, errorFrame{Error: "An error occurred while processing your message. Please try again."})
		return
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.log.Error("receive stream chunk", "error", err)
			utils.SendSSEChunk(w, flusher, errorFrame{Error: "An error occurred while processing your message. Please try again."})
			return
		}
		if chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		utils.SendSSEChunk(w, flusher, contentFrame{Content: chunk.Content})
	}

	fullResponse := full.String()

	// The turn's writes run detached, so a client dropping right at end of
	// stream cannot cancel them.
	persistCtx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPersist()

	if _, err := h.chatSvc.AppendMessage(persistCtx, userID, conversationID, chatmodel.RoleAssistant, fullResponse); err != nil {
		h.log.Error("persist assistant message", "error", err)
	}
	if err := h.profileSvc.IncrementInteractions(persistCtx, userID); err != nil {
		h.log.Warn("increment interactions", "error", err)
	}

	// First reply in a conversation names it after the response.
	if len(messages) == 1 {
		if title := deriveTitle(fullResponse); title != "" {
			if err := h.chatSvc.RenameConversation(persistCtx, userID, conversationID, title); err != nil {
				h.log.Warn("rename conversation", "error", err)
			}
		}
	}

	utils.SendSSEChunk(w, flusher, doneFrame{Done: true})

	if h.learningEnabled && h.learner != nil {
		existingContext := learned.Render()
		go h.learnFromExchange(userID, userMessage, fullResponse, existingContext)
	}
}

// learnFromExchange runs after the stream has closed, detached from the
// request context so a disconnecting client cannot cancel it.
func (h *Handler) learnFromExchange(userID, userMessage, assistantResponse, existingContext string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	learnings, err := h.learner.Extract(ctx, userMessage, assistantResponse, existingContext)
	if err != nil {
		h.log.Warn("extract learnings", "error", err)
		return
	}
	if learnings == nil {
		return
	}
	if err := h.profileSvc.MergeContext(ctx, userID, *learnings); err != nil {
		h.log.Warn("merge learned context", "error", err)
		return
	}
	h.log.Info("learned context updated", "userID", userID)
}

var titleStripPattern = regexp.MustCompile(`[^\w\s]`)

// deriveTitle turns the first assistant reply into a conversation title:
// first fifty characters, punctuation stripped, whitespace trimmed.
func deriveTitle(response string) string {
	runes := []rune(response)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return strings.TrimSpace(titleStripPattern.ReplaceAllString(string(runes), ""))
}
