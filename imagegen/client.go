// Package imagegen is the client for the external image-to-image API: a
// source image plus a style prompt in, a generated image URL out.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"go-stylize/apperr"
)

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      zerolog.Logger
}

type request struct {
	Prompt        string `json:"prompt"`
	ImageURL      string `json:"image_url"`
	StyleImageURL string `json:"style_image_url,omitempty"`
}

type response struct {
	ImageURL string `json:"image_url"`
	Message  string `json:"message"`
}

func NewClient(endpoint, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 90 * time.Second},
		log:      log.With().Str("component", "imagegen").Logger(),
	}
}

// Generate submits a stylization job and returns the generated image URL.
func (c *Client) Generate(ctx context.Context, prompt, imageURL, styleImageURL string) (string, error) {
	if prompt == "" || imageURL == "" {
		return "", apperr.New(apperr.KindValidation, "prompt and source image are required")
	}

	body, err := json.Marshal(request{Prompt: prompt, ImageURL: imageURL, StyleImageURL: styleImageURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "image generation service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error().Int("status", resp.StatusCode).Bytes("body", msg).Msg("generation failed")
		return "", apperr.New(apperr.KindUpstream,
			fmt.Sprintf("image generation failed (status %d)", resp.StatusCode))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "invalid response from image generation service", err)
	}
	if out.ImageURL == "" {
		return "", apperr.New(apperr.KindUpstream, "image generation service returned no image")
	}

	return out.ImageURL, nil
}
