package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/josecalvo/rubi/backend/internal/analysis/emotion"
	"github.com/josecalvo/rubi/backend/internal/logger"
	"github.com/josecalvo/rubi/backend/internal/middleware"
	chatmodel "github.com/josecalvo/rubi/backend/internal/model/chat"
	chatService "github.com/josecalvo/rubi/backend/internal/service/chat"
	profileService "github.com/josecalvo/rubi/backend/internal/service/profile"
	"github.com/josecalvo/rubi/backend/pkg/utils"
)

const maxTitleLength = 200

// Handler serves conversation CRUD, emotion probes, and preference reads
// and writes.
type Handler struct {
	chatSvc    *chatService.Service
	profileSvc *profileService.Service
	log        *logger.Logger
}

func New(chatSvc *chatService.Service, profileSvc *profileService.Service, log *logger.Logger) *Handler {
	return &Handler{chatSvc: chatSvc, profileSvc: profileSvc, log: log.With("handler", "chat")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations", h.ListConversations)
	r.Post("/conversations", h.CreateConversation)
	r.Get("/conversations/{conversationID}", h.GetConversation)
	r.Delete("/conversations/{conversationID}", h.DeleteConversation)

	r.Post("/detect-emotion", h.DetectEmotion)

	r.Get("/preferences", h.GetPreferences)
	r.Patch("/preferences", h.UpdatePreferences)
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Title) > maxTitleLength {
		utils.RespondError(w, http.StatusBadRequest, "title too long")
		return
	}

	conversation, err := h.chatSvc.CreateConversation(r.Context(), userID, req.Title)
	if err != nil {
		h.log.Error("create conversation", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, conversation)
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	conversations, err := h.chatSvc.ListConversations(r.Context(), userID)
	if err != nil {
		h.log.Error("list conversations", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to fetch conversations")
		return
	}
	utils.RespondJSON(w, http.StatusOK, conversations)
}

type conversationResponse struct {
	chatmodel.Conversation
	Messages []chatmodel.Message `json:"messages"`
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}

	conversation, err := h.chatSvc.GetConversation(r.Context(), userID, id)
	if errors.Is(err, chatService.ErrConversationNotFound) {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		h.log.Error("get conversation", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to fetch conversation")
		return
	}

	messages, err := h.chatSvc.ListMessages(r.Context(), userID, id)
	if err != nil {
		h.log.Error("list messages", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to fetch conversation")
		return
	}
	if messages == nil {
		messages = []chatmodel.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, conversationResponse{Conversation: *conversation, Messages: messages})
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}

	err = h.chatSvc.DeleteConversation(r.Context(), userID, id)
	if errors.Is(err, chatService.ErrConversationNotFound) {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		h.log.Error("delete conversation", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type detectEmotionRequest struct {
	Content string `json:"content"`
}

// DetectEmotion exposes the classifier directly so the client can update
// the avatar mood without sending a chat message.
func (h *Handler) DetectEmotion(w http.ResponseWriter, r *http.Request) {
	var req detectEmotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}
	utils.RespondJSON(w, http.StatusOK, emotion.Detect(req.Content))
}

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	prefs, err := h.profileSvc.Get(r.Context(), userID)
	if err != nil {
		h.log.Error("get preferences", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to fetch preferences")
		return
	}
	utils.RespondJSON(w, http.StatusOK, prefs)
}

type updatePreferencesRequest struct {
	ResponseMode       *string  `json:"responseMode"`
	CommunicationStyle *string  `json:"communicationStyle"`
	FavoriteTopics     []string `json:"favoriteTopics"`
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prefs, err := h.profileSvc.Update(r.Context(), userID, req.ResponseMode, req.CommunicationStyle, req.FavoriteTopics)
	if errors.Is(err, profileService.ErrInvalidPreference) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error("update preferences", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}
	utils.RespondJSON(w, http.StatusOK, prefs)
}
