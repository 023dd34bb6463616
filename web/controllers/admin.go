package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-stylize/web/db"
)

// AdminGrantCredits manually credits a trial identity. This is the support
// path for verified payments whose automatic credit update failed.
func (a *App) AdminGrantCredits(c *gin.Context) {
	var req struct {
		TrialID string `json:"trial_id"`
		Credits int    `json:"credits"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Credits <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Credits must be positive"})
		return
	}
	if _, err := uuid.Parse(req.TrialID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trial identity"})
		return
	}

	err := db.AddPaidCredits(c.Request.Context(), a.DB, req.TrialID, req.Credits)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"status": StatusNotFound})
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Str("trial_id", req.TrialID).Msg("manual credit grant failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccessful})
}

// AdminGetTrial dumps the full trial record for support.
func (a *App) AdminGetTrial(c *gin.Context) {
	id := c.Param("id")
	rec, err := db.GetTrial(c.Request.Context(), a.DB, id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"status": StatusNotFound})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccessful, "trial": rec})
}
