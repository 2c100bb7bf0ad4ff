package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/novarobotics/stormdrain/internal/chat"
)

type chatRequest struct {
	SessionID string         `json:"session_id" binding:"omitempty,max=64"`
	Role      string         `json:"role" binding:"omitempty,oneof=office field data"`
	Messages  []chat.Message `json:"messages" binding:"required,min=1,max=50,dive"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

func (h *Handler) chat(c *gin.Context) {
	if h.svc.Chat == nil {
		errorJSON(c, http.StatusServiceUnavailable, chat.ServerErrorMessage)
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	answer, err := h.svc.Chat.Complete(c.Request.Context(), req.Messages, chat.ParseRole(req.Role))
	if err != nil {
		slog.Warn("chat completion failed", "session_id", req.SessionID, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, chat.ErrTimeout) {
			status = http.StatusGatewayTimeout
		}
		c.AbortWithStatusJSON(status, gin.H{
			"session_id": req.SessionID,
			"error":      chat.UserMessage(err, h.svc.Chat.Timeout()),
		})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		SessionID: req.SessionID,
		Answer:    answer,
	})
}
