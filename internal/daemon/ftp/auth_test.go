package ftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeVerifier struct {
	containerID string
	username    string
	password    string
}

func (f *fakeVerifier) Verify(username, password string) (string, bool) {
	if username == f.username && password == f.password {
		return f.containerID, true
	}
	return "", false
}

func TestAuthenticateResolvesContainerHome(t *testing.T) {
	a := &Authenticator{
		Store:    &fakeVerifier{containerID: "00000000", username: "00000000", password: "pw"},
		BasePath: "/data/raptor",
	}

	home, ok := a.Authenticate("00000000", "pw")
	assert.True(t, ok)
	assert.Equal(t, "/data/raptor/volumes/00000000", home)
}

func TestAuthenticateRejectsBadPassword(t *testing.T) {
	a := &Authenticator{
		Store:    &fakeVerifier{containerID: "00000000", username: "00000000", password: "pw"},
		BasePath: "/data/raptor",
	}

	_, ok := a.Authenticate("00000000", "wrong")
	assert.False(t, ok)
}

func TestAuthenticateAdminGetsVolumesRoot(t *testing.T) {
	a := &Authenticator{
		Store:         &fakeVerifier{},
		BasePath:      "/data/raptor",
		AdminUsername: "admin",
		AdminPassword: "s3cret",
	}

	home, ok := a.Authenticate("admin", "s3cret")
	assert.True(t, ok)
	assert.Equal(t, "/data/raptor/volumes", home)
}
