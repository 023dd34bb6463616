// Package payment talks to the hosted checkout gateway: order creation over
// its JSON orders API and signature verification of completed payments.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-stylize/apperr"
)

type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	log       zerolog.Logger
}

// Order is the gateway's handle for a created order, passed to the checkout
// widget on the client.
type Order struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func NewClient(baseURL, keyID, keySecret string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       log.With().Str("component", "payment").Logger(),
	}
}

// KeyID is the public half of the gateway credentials, needed by the
// checkout widget.
func (c *Client) KeyID() string {
	return c.keyID
}

// Verify checks a payment confirmation signature against the key secret.
func (c *Client) Verify(orderID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// CreateOrder registers an order with the gateway. The trial identity rides
// in the order notes so the payment can be tied back to an entitlement row.
func (c *Client) CreateOrder(ctx context.Context, amount int, currency, trialID string) (*Order, error) {
	payload := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  "rcpt_" + uuid.NewString(),
		"notes":    map[string]string{"trial_id": trialID},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error().Int("status", resp.StatusCode).Bytes("body", msg).Msg("order creation rejected")
		return nil, apperr.New(apperr.KindUpstream,
			fmt.Sprintf("payment gateway rejected the order (status %d)", resp.StatusCode))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "invalid order response from payment gateway", err)
	}
	if order.ID == "" {
		return nil, apperr.New(apperr.KindUpstream, "payment gateway returned no order id")
	}

	return &order, nil
}
