package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-stylize/web/db"
	"go-stylize/web/middleware"
)

// Status is the closed result set of the trial registration API.
type Status string

const (
	StatusSuccessful    Status = "successful"
	StatusFailed        Status = "failed"
	StatusAlreadyExists Status = "already_exists"
	StatusNotFound      Status = "not_found"
)

// RegisterTrial inserts a trial identity if absent. Calling it twice with
// the same identity never creates a duplicate; the second call reports
// already_exists.
func (a *App) RegisterTrial(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusFailed, "error": "Invalid request"})
		return
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusFailed, "error": "Invalid trial identity"})
		return
	}

	rec := &db.TrialRecord{
		ID:           req.ID,
		IP:           c.ClientIP(),
		LastIP:       c.ClientIP(),
		UserMetadata: c.Request.UserAgent(),
	}
	created, err := db.RegisterTrial(c.Request.Context(), a.DB, rec)
	if err != nil {
		a.Log.Error().Err(err).Str("trial_id", req.ID).Msg("trial registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusFailed, "error": "Failed to register trial"})
		return
	}
	if created {
		c.JSON(http.StatusCreated, gin.H{"status": StatusSuccessful})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusAlreadyExists})
}

// GetTrial looks up a trial record by identity. Unknown identities are a
// 404 here; the generation gate has its own fail-open policy.
func (a *App) GetTrial(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusFailed, "error": "Invalid trial identity"})
		return
	}

	rec, err := db.GetTrial(c.Request.Context(), a.DB, id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"status": StatusNotFound})
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Str("trial_id", id).Msg("trial lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusFailed, "error": "Failed to fetch trial"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       StatusSuccessful,
		"free_used":    rec.FreeUsed,
		"paid_credits": rec.PaidCredits,
		"has_credits":  rec.PaidCredits > 0,
	})
}

// DeleteTrial removes a trial record, used by the client reconciler to
// discard the losing side of a divergence.
func (a *App) DeleteTrial(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusFailed, "error": "Invalid trial identity"})
		return
	}

	err := db.DeleteTrial(c.Request.Context(), a.DB, id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"status": StatusNotFound})
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Str("trial_id", id).Msg("trial delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusFailed, "error": "Failed to delete trial"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccessful})
}

// TrialStatus is the page-facing entitlement check: resolves the identity
// from the cookie (seeded earlier in the request on first contact), treats
// an unknown identity as free-eligible, and refreshes the cookie.
func (a *App) TrialStatus(c *gin.Context) {
	id := middleware.TrialID(c)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusFailed, "error": "Missing trial identity"})
		return
	}

	freeUsed := false
	paidCredits := 0
	rec, err := db.GetTrial(c.Request.Context(), a.DB, id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		// fresh or unseeded identity: free-eligible
	case err != nil:
		a.Log.Error().Err(err).Str("trial_id", id).Msg("trial status lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusFailed, "error": "Failed to fetch trial"})
		return
	default:
		freeUsed = rec.FreeUsed
		paidCredits = rec.PaidCredits
	}

	middleware.SetTrialCookie(c, id)
	c.JSON(http.StatusOK, gin.H{
		"status":       StatusSuccessful,
		"trial_id":     id,
		"free_used":    freeUsed,
		"paid_credits": paidCredits,
		"has_credits":  paidCredits > 0,
	})
}
