// Package identity resolves the anonymous trial identity across the client's
// persistence layers and keeps the server's record in sync.
package identity

import "github.com/google/uuid"

// Resolution is the outcome of merging the identity copies. Discard holds
// values that lost a divergence and must be deleted from the server store.
type Resolution struct {
	Chosen        string
	Discard       []string
	Generated     bool
	WriteLocal    bool
	WriteEmbedded bool
}

// Merge picks one trial identity from the three client-side copies. Empty
// string means absent. Precedence, in order:
//
//  1. local and embedded agree: use that value.
//  2. local and embedded differ: local wins, the embedded value is discarded
//     server-side. Local storage is the more durable signal; preferring it
//     avoids orphaning a paid-credit balance.
//  3. only one of local/embedded present: adopt it, copy to the other.
//  4. neither present but the cookie is: adopt the cookie value, seed both.
//  5. nothing anywhere: generate a fresh identity.
func Merge(cookie, local, embedded string) Resolution {
	switch {
	case local != "" && embedded != "":
		if local == embedded {
			return Resolution{Chosen: local}
		}
		return Resolution{
			Chosen:        local,
			Discard:       []string{embedded},
			WriteEmbedded: true,
		}
	case local != "":
		return Resolution{Chosen: local, WriteEmbedded: true}
	case embedded != "":
		return Resolution{Chosen: embedded, WriteLocal: true, WriteEmbedded: true}
	case cookie != "":
		return Resolution{Chosen: cookie, WriteLocal: true, WriteEmbedded: true}
	default:
		return Resolution{
			Chosen:        uuid.NewString(),
			Generated:     true,
			WriteLocal:    true,
			WriteEmbedded: true,
		}
	}
}
