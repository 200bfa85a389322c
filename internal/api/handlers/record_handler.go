package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/theravid/theravid/internal/services"
)

// maxClipBytes bounds how much recording we read into memory per request.
const maxClipBytes = 50 << 20

type RecordHandler struct {
	checkins services.CheckinService
}

func NewRecordHandler(checkins services.CheckinService) *RecordHandler {
	return &RecordHandler{checkins: checkins}
}

// Analyze handles POST /record: one multipart "file" field holding the
// recorded check-in clip.
func (h *RecordHandler) Analyze(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	if fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxClipBytes))
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}

	res, err := h.checkins.Analyze(
		c.Request.Context(),
		optionalUserID(c),
		fh.Filename,
		fh.Header.Get("Content-Type"),
		data,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}
