package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ServerClient issues trial registration and discard calls against the
// service's trial API. All calls are best-effort from the reconciler's point
// of view.
type ServerClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewServerClient(baseURL string) *ServerClient {
	return &ServerClient{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Register upserts the identity server-side. Already-exists is a success.
func (c *ServerClient) Register(ctx context.Context, id string) error {
	body, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/trial", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("trial registration failed with status %d", resp.StatusCode)
	}
	return nil
}

// Delete removes a discarded identity server-side. Not-found counts as done.
func (c *ServerClient) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/api/trial/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("trial delete failed with status %d", resp.StatusCode)
	}
	return nil
}

// Reconciler converges the client's identity copies and syncs the outcome
// with the server. Run once per session initialization, before any
// entitlement-sensitive action.
type Reconciler struct {
	Local    Store
	Embedded Store
	Server   *ServerClient
	Cookie   string // identity cookie value as observed, may be empty
	Log      zerolog.Logger
}

// Resolve returns the single chosen trial identity. Store read failures are
// treated as absent, write failures are self-healed once; the call only
// errors when neither store ends up holding the chosen value.
func (r *Reconciler) Resolve(ctx context.Context) (string, error) {
	local := r.load(r.Local, "local")
	embedded := r.load(r.Embedded, "embedded")

	res := Merge(r.Cookie, local, embedded)
	if res.Generated {
		r.Log.Info().Str("trial_id", res.Chosen).Msg("generated fresh trial identity")
	}

	if res.WriteLocal {
		r.save(r.Local, "local", res.Chosen)
	}
	if res.WriteEmbedded {
		r.save(r.Embedded, "embedded", res.Chosen)
	}

	// re-verify both stores and self-heal silently failed writes
	localOK := r.verify(r.Local, "local", res.Chosen)
	embeddedOK := r.verify(r.Embedded, "embedded", res.Chosen)
	if !localOK && !embeddedOK {
		return "", errors.New("no client store could persist the trial identity")
	}

	if r.Server != nil {
		for _, id := range res.Discard {
			if err := r.Server.Delete(ctx, id); err != nil {
				r.Log.Warn().Err(err).Str("trial_id", id).Msg("discard of stale identity failed")
			}
		}
		if err := r.Server.Register(ctx, res.Chosen); err != nil {
			r.Log.Warn().Err(err).Str("trial_id", res.Chosen).Msg("trial registration failed")
		}
	}

	return res.Chosen, nil
}

func (r *Reconciler) load(s Store, name string) string {
	if s == nil {
		return ""
	}
	id, err := s.Load()
	if err != nil {
		r.Log.Warn().Err(err).Str("store", name).Msg("identity read failed, treating as absent")
		return ""
	}
	return id
}

func (r *Reconciler) save(s Store, name, id string) {
	if s == nil {
		return
	}
	if err := s.Save(id); err != nil {
		r.Log.Warn().Err(err).Str("store", name).Msg("identity write failed")
	}
}

func (r *Reconciler) verify(s Store, name, want string) bool {
	if s == nil {
		return false
	}
	got, err := s.Load()
	if err == nil && got == want {
		return true
	}
	if err := s.Save(want); err != nil {
		r.Log.Warn().Err(err).Str("store", name).Msg("identity self-heal failed")
		return false
	}
	got, err = s.Load()
	return err == nil && got == want
}
