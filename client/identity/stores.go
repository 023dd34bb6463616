package identity

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is one client-side persistence layer for the trial identity.
type Store interface {
	Load() (string, error)
	Save(id string) error
}

// FileStore keeps the identity in a small JSON state file, the analog of the
// browser's local storage.
type FileStore struct {
	path string
}

type fileState struct {
	TrialID   string    `json:"trial_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return "", err
	}
	return st.TrialID, nil
}

func (s *FileStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(fileState{TrialID: id, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// SQLiteStore keeps the identity in an embedded database, the second and
// independently clearable persistence layer.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := path + "?" + url.Values{
		"_pragma": []string{"busy_timeout(5000)", "journal_mode(WAL)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS trial_identity (
		k TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM trial_identity WHERE k = 'current'`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) Save(id string) error {
	_, err := s.db.Exec(`INSERT INTO trial_identity (k, id, updated_at) VALUES ('current', ?, ?)
		ON CONFLICT(k) DO UPDATE SET id = excluded.id, updated_at = excluded.updated_at`,
		id, time.Now().Unix())
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
