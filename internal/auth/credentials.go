// Package auth drives the TeamSnap OAuth2 out-of-band flow: a
// file-backed token store, an authorizer state machine over the
// authorization-code and refresh-token exchanges, and a watcher that
// picks up external rewrites of the credentials file.
package auth

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RedirectOOB is the out-of-band redirect sentinel. TeamSnap displays
// the authorization code in the browser for manual copy instead of
// delivering it to a callback URL.
const RedirectOOB = "urn:ietf:wg:oauth:2.0:oob"

const (
	// credentialsDirPerm is the permission mode for the directory
	// holding the credentials file.
	credentialsDirPerm = fs.FileMode(0o700)

	// credentialsFilePerm is the permission mode for the credentials
	// file itself. It holds the client secret and live tokens.
	credentialsFilePerm = fs.FileMode(0o600)
)

// Credentials identifies this application to the OAuth server.
// Immutable once loaded.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TokenRecord is the persisted unit of truth for the token lifecycle.
// A zero ExpiresAt means the server gave no expiry; the token is then
// assumed valid until the server says otherwise.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the record's expiry is known and in the past.
func (t *TokenRecord) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// credentialsFile is the on-disk YAML shape. The single "teamsnap"
// section holds both the immutable client credentials and the mutable
// token fields, mirroring the file the interactive auth CLI writes.
type credentialsFile struct {
	Teamsnap credentialsSection `yaml:"teamsnap"`
}

type credentialsSection struct {
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	RedirectURI    string `yaml:"redirect_uri,omitempty"`
	AccessToken    string `yaml:"access_token,omitempty"`
	RefreshToken   string `yaml:"refresh_token,omitempty"`
	TokenExpiresAt string `yaml:"token_expires_at,omitempty"`
}

// FileStore reads and writes the credentials file. It assumes a single
// local process; there is no cross-process locking.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credentials file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) read() (*credentialsFile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var f credentialsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// Credentials loads the client credentials section. It fails when the
// file is unreadable or the credentials are missing or still hold the
// template placeholders.
func (s *FileStore) Credentials() (*Credentials, error) {
	f, err := s.read()
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	sec := f.Teamsnap
	if sec.ClientID == "" || sec.ClientSecret == "" {
		return nil, fmt.Errorf("client_id and client_secret must be set in %s", s.path)
	}

	if sec.ClientID == "YOUR_CLIENT_ID_HERE" || sec.ClientSecret == "YOUR_CLIENT_SECRET_HERE" {
		return nil, fmt.Errorf("replace the placeholder credentials in %s", s.path)
	}

	creds := &Credentials{
		ClientID:     sec.ClientID,
		ClientSecret: sec.ClientSecret,
		RedirectURI:  sec.RedirectURI,
	}
	if creds.RedirectURI == "" {
		creds.RedirectURI = RedirectOOB
	}

	return creds, nil
}

// Load returns the persisted TokenRecord, or nil when no token has
// been stored yet. A missing file counts as absent; a present but
// unreadable file is a PersistenceError.
func (s *FileStore) Load() (*TokenRecord, error) {
	f, err := s.read()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	sec := f.Teamsnap
	if sec.AccessToken == "" {
		return nil, nil
	}

	rec := &TokenRecord{
		AccessToken:  sec.AccessToken,
		RefreshToken: sec.RefreshToken,
	}

	if sec.TokenExpiresAt != "" {
		at, err := time.Parse(time.RFC3339, sec.TokenExpiresAt)
		if err != nil {
			return nil, &PersistenceError{Op: "load", Path: s.path,
				Err: fmt.Errorf("parsing token_expires_at: %w", err)}
		}

		rec.ExpiresAt = at
	}

	return rec, nil
}

// Save rewrites the credentials file with the given TokenRecord,
// preserving the client credentials section. Write failures are never
// treated as absent: callers must see them.
func (s *FileStore) Save(rec *TokenRecord) error {
	f, err := s.read()
	if err != nil && !os.IsNotExist(err) {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	if f == nil {
		f = &credentialsFile{}
	}

	f.Teamsnap.AccessToken = rec.AccessToken
	f.Teamsnap.RefreshToken = rec.RefreshToken

	if rec.ExpiresAt.IsZero() {
		f.Teamsnap.TokenExpiresAt = ""
	} else {
		f.Teamsnap.TokenExpiresAt = rec.ExpiresAt.Format(time.RFC3339)
	}

	if f.Teamsnap.RedirectURI == "" {
		f.Teamsnap.RedirectURI = RedirectOOB
	}

	out, err := yaml.Marshal(f)
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), credentialsDirPerm); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	if err := os.WriteFile(s.path, out, credentialsFilePerm); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	return nil
}

// DefaultCredentialsPath returns ~/.teamsnap/credentials.yml.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".teamsnap", "credentials.yml"), nil
}
