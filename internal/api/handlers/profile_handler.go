package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/theravid/theravid/internal/services"
	"github.com/theravid/theravid/internal/utils"
)

type ProfileHandler struct {
	profiles services.ProfileService
}

func NewProfileHandler(profiles services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Me handles GET /api/me.
func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	me, err := h.profiles.GetMe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

// UpdateMe handles PUT /api/me: a partial account update.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var in services.MeUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProfileHandler.UpdateMe", "invalid request body", err))
		return
	}

	if err := h.profiles.UpdateMe(c.Request.Context(), userID, in); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type preferencesRequest struct {
	Goal string `json:"goal"`
	Mood string `json:"mood"`
}

// UpdatePreferences handles PUT /api/preferences.
func (h *ProfileHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var in preferencesRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProfileHandler.UpdatePreferences", "invalid request body", err))
		return
	}

	if err := h.profiles.UpdatePreferences(c.Request.Context(), userID, in.Goal, in.Mood); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
