package credentials

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Credential is the OAuth client registration plus current tokens for one
// provider. Access and refresh tokens are empty until the first successful
// authorization.
type Credential struct {
	Provider     string
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	Scope        string
}

// Authenticated reports whether the credential carries a usable access token.
func (c Credential) Authenticated() bool {
	return c.AccessToken != ""
}

// FileStore persists one flat "key = value" record file per provider under
// a base directory. All access goes through a single mutex so concurrent
// flows for the same provider cannot interleave a read-modify-write.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created if
// it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(provider string) string {
	return filepath.Join(s.dir, provider+".tokens")
}

// Load reads the credential record for a provider. A missing record is not
// an error: it means the provider must be (re)authorized.
func (s *FileStore) Load(provider string) (Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(provider))
	if err != nil {
		if os.IsNotExist(err) {
			return Credential{}, false, nil
		}
		return Credential{}, false, fmt.Errorf("open credential record: %w", err)
	}
	defer f.Close()

	cred := Credential{Provider: provider}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "client_id":
			cred.ClientID = val
		case "client_secret":
			cred.ClientSecret = val
		case "access_token":
			cred.AccessToken = val
		case "refresh_token":
			cred.RefreshToken = val
		case "scope":
			cred.Scope = val
		}
	}
	if err := scanner.Err(); err != nil {
		return Credential{}, false, fmt.Errorf("read credential record: %w", err)
	}
	return cred, true, nil
}

// Save atomically replaces the credential record for a provider. The record
// is written to a temp file in the same directory and renamed into place so
// a crash mid-write never leaves a partial record.
func (s *FileStore) Save(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, cred.Provider+".tokens.*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	writeField(w, "client_id", cred.ClientID)
	writeField(w, "client_secret", cred.ClientSecret)
	writeField(w, "access_token", cred.AccessToken)
	writeField(w, "refresh_token", cred.RefreshToken)
	writeField(w, "scope", cred.Scope)
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(cred.Provider)); err != nil {
		return fmt.Errorf("replace credential record: %w", err)
	}
	return nil
}

func writeField(w *bufio.Writer, key, val string) {
	if val == "" {
		return
	}
	fmt.Fprintf(w, "%s = %s\n", key, val)
}
