package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	middleware "github.com/markdave123-py/genai-chat/internal/api/middlewares"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

// ChatSender answers one chat message for a user.
type ChatSender interface {
	Send(ctx context.Context, username, message string) (string, error)
}

type ChatHandler struct {
	chat  ChatSender
	views *Renderer
	log   *zap.Logger
}

func NewChatHandler(chat ChatSender, views *Renderer, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, views: views, log: log}
}

type sendRequest struct {
	Message string `json:"message"`
}

// maxSendBody caps the /send request body; messages are limited to 2000 characters.
const maxSendBody = 64 << 10

type sendResponse struct {
	Response string `json:"response"`
}

type sendError struct {
	Error string `json:"error"`
}

func (h *ChatHandler) Page(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.Username(r.Context())
	h.views.HTML(w, http.StatusOK, "chat", Page{Username: username})
}

// Send answers POST /send with {"response": ...} or {"error": ...}.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.Username(r.Context())

	var req sendRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxSendBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, sendError{Error: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, sendError{Error: "invalid request"})
		return
	}
	h.log.Debug("chat message", zap.String("username", username), zap.Int("len", len(req.Message)))

	reply, err := h.chat.Send(r.Context(), username, req.Message)
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, sendError{Error: verr.Reason})
		return
	case err != nil:
		h.log.Error("chat message failed", zap.String("username", username), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, sendError{Error: "An error occurred while processing your message."})
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Response: reply})
}
