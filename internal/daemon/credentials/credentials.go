// Package credentials persists per-container file-transfer credentials,
// bcrypt hashed, in the shape spec.md §4.L6 names for
// ftp_credentials.json: {credentials: {<container-id>: {username,
// password_hash}}}. Grounded on the daemon state store's atomic-rewrite
// pattern (internal/daemon/state) and the teacher's bcrypt usage pulled
// from the wider retrieval pack rather than the teacher itself, which never
// hashes anything.
package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Entry is one container's file-transfer login.
type Entry struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

type document struct {
	Credentials map[string]Entry `json:"credentials"`
}

// Store is the credential store named in spec.md §4.L6, keyed by
// container id (as a string, matching the persisted JSON shape).
type Store struct {
	mu   sync.Mutex
	path string
	data map[string]Entry
}

// New loads the store from path, or starts empty if the file is absent.
func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[string]Entry{}}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if doc.Credentials != nil {
		s.data = doc.Credentials
	}
	return s, nil
}

// SetPassword is idempotent: the username is always the deterministic
// derivation from the container id (pkg/idgen.FTPUsername), so calling this
// twice for the same container just rehashes the password and rewrites the
// store, per spec.md §4.L6.
func (s *Store) SetPassword(containerID, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[containerID] = Entry{Username: username, PasswordHash: string(hash)}
	return s.save()
}

// Remove deletes a container's credentials.
func (s *Store) Remove(containerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, containerID)
	return s.save()
}

// Verify checks a username/password pair against the store and, on success,
// returns the container id whose volume directory is this user's jailed
// home. Admin logins (whole volumes root) are handled by the FTP server
// itself and never reach this store, per spec.md §4.L6 "not persisted".
func (s *Store) Verify(username, password string) (containerID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cid, entry := range s.data {
		if entry.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(entry.PasswordHash), []byte(password)) != nil {
			return "", false
		}
		return cid, true
	}
	return "", false
}

// save rewrites the full document, matching the read-modify-write shape
// spec.md §9's open question #4 flags as susceptible to lost updates
// between two concurrent SetPassword calls for different containers — the
// Store's own mutex serializes all callers within this process, which
// covers the only writer the daemon itself has.
func (s *Store) save() error {
	doc := document{Credentials: s.data}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ftp_credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
