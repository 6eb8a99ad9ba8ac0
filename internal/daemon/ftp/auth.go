package ftp

import (
	"path/filepath"
)

// CredentialVerifier is the subset of internal/daemon/credentials.Store the
// authenticator needs, kept as an interface so tests can fake it.
type CredentialVerifier interface {
	Verify(username, password string) (containerID string, ok bool)
}

// Authenticator resolves a username/password pair to a jailed session, per
// spec.md §4.L6 "Authenticator".
type Authenticator struct {
	Store    CredentialVerifier
	BasePath string

	// AdminUsername/AdminPassword, if set, grant a session rooted at the
	// entire volumes directory instead of one container's volume — per
	// spec.md §4.L6 "Admin users (home = entire volumes root) are not
	// persisted."
	AdminUsername string
	AdminPassword string
}

// Authenticate returns the resolved home path for a successful login.
func (a *Authenticator) Authenticate(username, password string) (home string, ok bool) {
	if a.AdminUsername != "" && username == a.AdminUsername && password == a.AdminPassword {
		return filepath.Join(a.BasePath, "volumes"), true
	}

	containerID, ok := a.Store.Verify(username, password)
	if !ok {
		return "", false
	}
	return filepath.Join(a.BasePath, "volumes", containerID), true
}
