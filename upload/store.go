// Package upload stores user-submitted photos under a public directory with
// sanitized names and removes them automatically after a fixed interval.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-stylize/apperr"
)

var ErrNotFound = errors.New("uploaded file not found")

type Store struct {
	dir      string
	ttl      time.Duration
	maxBytes int64
	log      zerolog.Logger
}

func NewStore(dir string, ttl time.Duration, maxBytes int64, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:      dir,
		ttl:      ttl,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "upload").Logger(),
	}, nil
}

// SanitizeName strips path components and anything that is not a safe
// filename character, keeping the extension.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "upload"
	}
	return out
}

// Save writes the file under a unique sanitized name and schedules its
// deletion after the store TTL. Returns the stored name.
func (s *Store) Save(name string, size int64, r io.Reader) (string, error) {
	if s.maxBytes > 0 && size > s.maxBytes {
		return "", apperr.New(apperr.KindValidation,
			fmt.Sprintf("file too large, limit is %d bytes", s.maxBytes))
	}

	stored := uuid.NewString() + "_" + SanitizeName(name)
	path := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	src := r
	if s.maxBytes > 0 {
		// one byte past the cap so oversize bodies are detected, not
		// silently truncated to the limit
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = apperr.New(apperr.KindValidation,
			fmt.Sprintf("file too large, limit is %d bytes", s.maxBytes))
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	// fire-and-forget cleanup after the fixed interval
	time.AfterFunc(s.ttl, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("file", stored).Msg("scheduled cleanup failed")
		}
	})

	return stored, nil
}

// Remove deletes a stored file by name. Names carrying path separators are
// rejected before touching the filesystem.
func (s *Store) Remove(name string) error {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return apperr.New(apperr.KindValidation, "invalid file name")
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Dir is the public directory uploads are served from.
func (s *Store) Dir() string {
	return s.dir
}
