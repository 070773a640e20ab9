package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/dialogue"
)

// Dialogue advances one chat session by one message.
type Dialogue interface {
	Handle(ctx context.Context, sessionID, message string) (dialogue.Reply, error)
}

// ChatHandler serves POST /v1/chat.  A nil dialogue means no session store
// is configured and every request gets 503.
type ChatHandler struct {
	dialogue Dialogue
	log      *zap.Logger
}

func NewChatHandler(d Dialogue, log *zap.Logger) *ChatHandler {
	if log == nil {
		panic("nil logger passed to NewChatHandler")
	}
	return &ChatHandler{dialogue: d, log: log}
}

type chatRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
	Message   string `json:"message" validate:"required"`
}

func (h *ChatHandler) Chat(c echo.Context) error {
	if h.dialogue == nil {
		return failure(c, http.StatusServiceUnavailable, msgChatUnavailable)
	}
	var body chatRequest
	if ok, err := bindValid(c, &body); !ok {
		return err
	}
	reply, err := h.dialogue.Handle(c.Request().Context(), body.SessionID, body.Message)
	switch {
	case errors.Is(err, dialogue.ErrEmptyMessage):
		return invalidInput(c, "message must be 1-2000 characters")
	case err != nil:
		h.log.Error("chat turn failed", zap.String("session_id", body.SessionID), zap.Error(err))
		return failure(c, http.StatusServiceUnavailable, msgChatUnavailable)
	}
	return c.JSON(http.StatusOK, reply)
}
