package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go-stylize/web/db"
)

const (
	TrialCookieName = "trialId"

	// trialKey is the gin context key downstream handlers read the seeded
	// identity from on the first visit, before the cookie round-trips.
	trialKey = "trialID"

	trialCookieMaxAge = 365 * 24 * 60 * 60
)

// SetTrialCookie writes the identity cookie with the parameters every
// surface uses: httpOnly, SameSite=Strict, path /, 1-year expiry.
func SetTrialCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(TrialCookieName, id, trialCookieMaxAge, "/", "", false, true)
}

// TrialID returns the request's trial identity: the cookie, or the identity
// seeded earlier in this request.
func TrialID(c *gin.Context) string {
	if id, err := c.Cookie(TrialCookieName); err == nil && id != "" {
		return id
	}
	return c.GetString(trialKey)
}

// IdentitySeeder assigns a trial identity on first contact. Requests that
// already carry the cookie pass through untouched; otherwise a fresh UUID is
// minted, a server record is seeded best-effort (failure logged, response
// never blocked), and the cookie is set regardless.
func IdentitySeeder(gdb *gorm.DB, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(TrialCookieName); err == nil && id != "" {
			c.Next()
			return
		}

		id := uuid.NewString()
		rec := &db.TrialRecord{
			ID:           id,
			IP:           c.ClientIP(),
			LastIP:       c.ClientIP(),
			UserMetadata: c.Request.UserAgent(),
		}
		if _, err := db.RegisterTrial(c.Request.Context(), gdb, rec); err != nil {
			log.Warn().Err(err).Str("trial_id", id).Msg("seeding trial record failed")
		}

		SetTrialCookie(c, id)
		c.Set(trialKey, id)
		c.Next()
	}
}
