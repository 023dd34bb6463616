package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-stylize/apperr"
	"go-stylize/web/db"
	"go-stylize/web/middleware"
)

// CreateOrder registers an order with the payment gateway for additional
// generation credits and records it locally.
func (a *App) CreateOrder(c *gin.Context) {
	var req struct {
		Amount   int    `json:"amount"` // in paise
		Currency string `json:"currency"`
		TrialID  string `json:"trial_id"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
		return
	}
	if req.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount", "kind": "validation"})
		return
	}
	if req.Amount == 0 {
		req.Amount = a.Cfg.PricePaise
	}
	if req.Currency == "" {
		req.Currency = "INR"
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
	order, err := a.Gateway.CreateOrder(ctx, req.Amount, req.Currency, id)
	if err != nil {
		a.fail(c, err)
		return
	}

	row := &db.PaymentOrder{
		OrderID:  order.ID,
		TrialID:  id,
		Amount:   order.Amount,
		Currency: order.Currency,
	}
	if err := db.CreateOrder(ctx, a.DB, row); err != nil {
		// order exists at the gateway; the verify path falls back to the
		// request identity, so this is logged rather than fatal
		a.Log.Error().Err(err).Str("order_id", order.ID).Msg("local order bookkeeping failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"key_id":   a.Gateway.KeyID(),
	})
}

// VerifyPayment checks the gateway's payment confirmation signature and, on
// success, credits the trial identity recorded against the order. A
// confirmation replayed for an order already marked paid is acknowledged
// without crediting again. A verified payment whose credit
// update fails is surfaced explicitly: money has moved, so the user is told
// to contact support instead of the failure being retried or swallowed.
func (a *App) VerifyPayment(c *gin.Context) {
	var req struct {
		OrderID   string `json:"order_id"`
		PaymentID string `json:"payment_id"`
		Signature string `json:"signature"`
		TrialID   string `json:"trial_id"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order, payment or signature", "kind": "validation"})
		return
	}

	if !a.Gateway.Verify(req.OrderID, req.PaymentID, req.Signature) {
		c.JSON(http.StatusBadRequest, gin.H{
			"verified": false,
			"error":    "Payment verification failed",
			"kind":     "verification",
		})
		return
	}

	ctx := c.Request.Context()

	// the local order row decides two things: whether this confirmation was
	// already processed, and who the credit belongs to. A forwarded
	// confirmation must not be able to credit an arbitrary identity.
	order, err := db.GetOrder(ctx, a.DB, req.OrderID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		a.fail(c, apperr.Wrap(apperr.KindBookkeeping, "Failed to check payment status", err))
		return
	}

	var id string
	if order != nil {
		if order.Status == "paid" {
			c.JSON(http.StatusOK, gin.H{
				"verified": true,
				"credited": false,
				"status":   "already_processed",
			})
			return
		}
		id = order.TrialID
	}
	if id == "" {
		// order created at the gateway but local bookkeeping missed it
		id = req.TrialID
	}
	if id == "" {
		id = middleware.TrialID(c)
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing trial identity", "kind": "validation"})
		return
	}

	if err := db.AddPaidCredits(ctx, a.DB, id, 1); err != nil {
		a.Log.Error().Err(err).Str("trial_id", id).Str("order_id", req.OrderID).
			Str("payment_id", req.PaymentID).Msg("verified payment not credited")
		c.JSON(http.StatusInternalServerError, gin.H{
			"verified": true,
			"credited": false,
			"kind":     "bookkeeping",
			"error":    "Payment received but the credit could not be recorded. Please contact support with your payment id.",
		})
		return
	}

	if err := db.MarkOrderPaid(ctx, a.DB, req.OrderID, req.PaymentID); err != nil {
		a.Log.Warn().Err(err).Str("order_id", req.OrderID).Msg("order status update failed")
	}

	c.JSON(http.StatusOK, gin.H{"verified": true, "credited": true})
}
