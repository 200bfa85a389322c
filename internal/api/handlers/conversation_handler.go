package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/theravid/theravid/internal/services"
	"github.com/theravid/theravid/internal/utils"
)

type ConversationHandler struct {
	convos services.ConversationService
}

func NewConversationHandler(convos services.ConversationService) *ConversationHandler {
	return &ConversationHandler{convos: convos}
}

// ListBySession handles GET /api/admin/conversations/:session_id — the
// mirrored analytics copy of a chat session.
func (h *ConversationHandler) ListBySession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ConversationHandler.ListBySession", "session_id is required", nil))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.convos.ListBySession(c.Request.Context(), sessionID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "conversations": rows})
}
