package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-stylize/web/db"
	"go-stylize/web/middleware"
)

// Generate runs the entitlement-gated stylization flow: validate inputs,
// resolve the trial identity, atomically consume a credit, then call the
// generation collaborator. The collaborator is never invoked for an identity
// with no entitlement, and a failed generation refunds the consumed credit.
func (a *App) Generate(c *gin.Context) {
	var req struct {
		TrialID       string `json:"trial_id"`
		Prompt        string `json:"prompt"`
		ImageURL      string `json:"image_url"`
		StyleImageURL string `json:"style_image_url"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
		return
	}
	if req.ImageURL == "" || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A source image and a style are required", "kind": "validation"})
		return
	}

	id := req.TrialID
	if id == "" {
		id = middleware.TrialID(c)
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing trial identity", "kind": "validation"})
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trial identity", "kind": "validation"})
		return
	}

	ctx := c.Request.Context()

	// unknown identities are free-eligible: register on demand so the
	// conditional consume below has a row to hit
	rec := &db.TrialRecord{
		ID:           id,
		IP:           c.ClientIP(),
		LastIP:       c.ClientIP(),
		UserMetadata: c.Request.UserAgent(),
	}
	if _, err := db.RegisterTrial(ctx, a.DB, rec); err != nil {
		a.Log.Warn().Err(err).Str("trial_id", id).Msg("register-on-demand failed")
	}

	kind, err := db.ConsumeCredit(ctx, a.DB, id)
	if errors.Is(err, db.ErrNoEntitlement) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":            "Free generation already used",
			"payment_required": true,
			"amount":           a.Cfg.PricePaise,
			"currency":         "INR",
		})
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Str("trial_id", id).Msg("credit consume failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check entitlement"})
		return
	}

	imageURL, err := a.Generator.Generate(ctx, req.Prompt, req.ImageURL, req.StyleImageURL)
	if err != nil {
		if rErr := db.RefundCredit(ctx, a.DB, id, kind); rErr != nil {
			a.Log.Error().Err(rErr).Str("trial_id", id).Str("credit", string(kind)).
				Msg("credit refund after failed generation failed")
		}
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"image_url": imageURL,
		"credit":    string(kind),
	})
}
