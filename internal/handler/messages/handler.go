package messages

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/empathyai/companion/internal/middleware"
	model "github.com/empathyai/companion/internal/model/chat"
	chatservice "github.com/empathyai/companion/internal/service/chat"
	"github.com/empathyai/companion/pkg/utils"
)

const writeTimeout = 10 * time.Second

// Handler 消息存取与实时订阅的HTTP处理器
type Handler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// New 创建消息处理器
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册消息路由，所有路由要求已认证。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handleAppend)
	r.Get("/messages", h.handleHistory)
	r.Get("/messages/ws", h.handleSubscribe)
}

type appendRequest struct {
	ID      string `json:"id,omitempty"`
	Text    string `json:"text"`
	Sender  string `json:"sender"`
	Emotion string `json:"emotion,omitempty"`
}

// handleAppend stores one message on the caller's log. The identity always
// comes from the token, never from the body.
func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var payload appendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg := model.Message{
		ID:      payload.ID,
		UserID:  userID,
		Text:    payload.Text,
		Sender:  model.Sender(payload.Sender),
		Emotion: payload.Emotion,
	}

	stored, err := h.chatSvc.Append(r.Context(), msg)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, stored)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	history, err := h.chatSvc.History(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if history == nil {
		history = []model.Message{}
	}

	utils.RespondJSON(w, http.StatusOK, history)
}

// handleSubscribe upgrades to a websocket and pushes the full ordered
// snapshot of the caller's log on every change until the peer goes away.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	snapshots, cancel, err := h.chatSvc.Subscribe(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[messages] websocket upgrade failed for user=%s: %v", userID, err)
		return
	}
	defer conn.Close()

	// Reader goroutine notices the peer closing; we never expect inbound data.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				log.Printf("[messages] websocket write failed for user=%s: %v", userID, err)
				return
			}
		}
	}
}
