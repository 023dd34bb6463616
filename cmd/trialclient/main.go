// trialclient resolves the trial identity across the client's state file and
// embedded database, self-heals divergence, and registers the result with
// the service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"go-stylize/client/identity"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "web service base URL")
	stateDir := flag.String("state-dir", defaultStateDir(), "directory for client identity state")
	cookie := flag.String("cookie", "", "trial identity cookie value, if observed")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	embedded, err := identity.NewSQLiteStore(filepath.Join(*stateDir, "trial.db"))
	if err != nil {
		logger.Fatal().Err(err).Msg("embedded identity store init failed")
	}
	defer embedded.Close()

	rec := &identity.Reconciler{
		Local:    identity.NewFileStore(filepath.Join(*stateDir, "trial.json")),
		Embedded: embedded,
		Server:   identity.NewServerClient(*server),
		Cookie:   *cookie,
		Log:      logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	id, err := rec.Resolve(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("identity resolution failed")
	}
	fmt.Println(id)
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stylize"
	}
	return filepath.Join(home, ".stylize")
}
