package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/theravid/theravid/internal/services"
)

type ChatHandler struct {
	chats services.ChatService
}

func NewChatHandler(chats services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// Send handles POST /chat: multipart fields "session" (optional), "text"
// (optional) and "file" (optional video reply). At least one of text or file
// must be present.
func (h *ChatHandler) Send(c *gin.Context) {
	sessionID := c.PostForm("session")
	text := c.PostForm("text")

	var clip *services.ChatClip
	if fh, err := c.FormFile("file"); err == nil && fh.Filename != "" {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxClipBytes))
		f.Close()
		if err != nil || len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}
		clip = &services.ChatClip{
			FileName: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		}
	}

	if text == "" && clip == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no text or file provided"})
		return
	}

	res, err := h.chats.Send(c.Request.Context(), sessionID, optionalUserID(c), text, clip)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// History handles GET /chat?session=<id>. A missing session id mints a fresh
// one and returns it with an empty history, so clients can bootstrap a
// conversation with a single GET.
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := h.chats.History(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": sessionID, "history": history})
}
