package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/internal/services"
)

type ChatHandler struct {
	service services.ChatServiceInterface
}

func NewChatHandler(service services.ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

// Chat handles POST /api/v1/chat. Upstream failures never surface here; the
// service answers with a fallback reply instead.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if details := ParseValidationErrors(err); len(details) > 0 {
			respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details, err)
			return
		}
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.NewMessage) == "" {
		respondError(c, http.StatusBadRequest, "Message is required", nil)
		return
	}

	c.JSON(http.StatusOK, h.service.Reply(c.Request.Context(), &req))
}
