package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/empathyai/companion/internal/model/chat"
	"github.com/empathyai/companion/internal/service/ai"
	chatservice "github.com/empathyai/companion/internal/service/chat"
	"github.com/empathyai/companion/pkg/utils"
)

// Feedback records thumb ratings for AI messages.
type Feedback interface {
	Upsert(ctx context.Context, messageID string, rating int) error
}

// Handler 聊天与反馈的HTTP处理器
type Handler struct {
	aiSvc    *ai.Service
	chatSvc  *chatservice.Service
	feedback Feedback
}

// New 创建聊天处理器
func New(aiSvc *ai.Service, chatSvc *chatservice.Service, feedback Feedback) *Handler {
	return &Handler{aiSvc: aiSvc, chatSvc: chatSvc, feedback: feedback}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/feedback", h.handleFeedback)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Text    string `json:"text"`
	ChatID  string `json:"chat_id"`
	Emotion string `json:"emotion"`
}

// handleChat generates a companion reply and persists it to the user's log.
// The client may also persist the reply it receives; its duplicate check is
// what keeps the log from growing two copies.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.UserID == "" || payload.Text == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, "user_id and text are required")
		return
	}

	history, err := h.chatSvc.History(r.Context(), payload.UserID)
	if err != nil {
		log.Printf("[chat] failed to load history for user=%s: %v", payload.UserID, err)
		history = nil
	}

	reply, err := h.aiSvc.GenerateReply(r.Context(), payload.UserID, payload.Text, payload.Emotion, history)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	aiMsg := model.Message{
		UserID:  payload.UserID,
		Text:    reply,
		Sender:  model.SenderAI,
		Emotion: payload.Emotion,
	}
	if _, err := h.chatSvc.Append(r.Context(), aiMsg); err != nil {
		log.Printf("[chat] failed to persist ai reply for user=%s: %v", payload.UserID, err)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"response": reply})
}

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Rating    int    `json:"rating"`
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var payload feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.MessageID == "" || (payload.Rating != 1 && payload.Rating != -1) {
		utils.RespondError(w, http.StatusUnprocessableEntity, "message_id and rating of +1 or -1 are required")
		return
	}

	if err := h.feedback.Upsert(r.Context(), payload.MessageID, payload.Rating); err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, "error processing feedback")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Feedback received"})
}
