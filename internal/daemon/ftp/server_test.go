package ftp

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// newTestSession wires a session to a real loopback data connection so
// handlers that call openData() can be exercised without a full client.
func newTestSession(t *testing.T) (*session, net.Conn) {
	t.Helper()
	home := t.TempDir()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	sess := &session{
		Server: &Server{Log: logrus.NewEntry(logrus.New())},
		writer: bufio.NewWriter(io.Discard),
		jail:   &Jail{Home: home},
		cwd:    "/",
	}
	sess.dataListener = ln

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	return sess, clientConn
}

// Per spec.md §4.L6 "put (create parents, seek on resume)": REST followed
// by STOR must seek past the existing bytes rather than truncating them.
func TestRESTThenSTORResumesWithoutTruncating(t *testing.T) {
	sess, client := newTestSession(t)
	path := filepath.Join(sess.jail.Home, "world.zip")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	sess.handleREST("5")
	require.Equal(t, int64(5), sess.restOffset)

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Write([]byte("ABCDE"))
		client.Close()
	}()
	sess.handleSTOR("world.zip")
	<-done

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "01234ABCDE", string(contents))
	require.Equal(t, int64(0), sess.restOffset, "REST offset must be consumed by the transfer it applies to")
}

// Per spec.md §4.L6 "get (seek on resume)": REST followed by RETR must
// start the transfer from the requested offset.
func TestRESTThenRETRSeeksBeforeCopying(t *testing.T) {
	sess, client := newTestSession(t)
	path := filepath.Join(sess.jail.Home, "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	sess.handleREST("7")

	received := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(client)
		received <- data
	}()
	sess.handleRETR("log.txt")

	require.Equal(t, "789", string(<-received))
}

// APPE must never truncate the destination, unlike STOR without REST.
func TestAPPEAppendsWithoutTruncating(t *testing.T) {
	sess, client := newTestSession(t)
	path := filepath.Join(sess.jail.Home, "server.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\n"), 0o644))

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Write([]byte("line two\n"))
		client.Close()
	}()
	sess.handleAPPE("server.log")
	<-done

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "line one\nline two\n", string(contents))
}

// A fresh STOR (no preceding REST) still truncates, as before.
func TestSTORWithoutRESTTruncates(t *testing.T) {
	sess, client := newTestSession(t)
	path := filepath.Join(sess.jail.Home, "save.dat")
	require.NoError(t, os.WriteFile(path, []byte("old content that is long"), 0o644))

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Write([]byte("new"))
		client.Close()
	}()
	sess.handleSTOR("save.dat")
	<-done

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", string(contents))
}

func TestHandleRESTRejectsGarbage(t *testing.T) {
	sess, client := newTestSession(t)
	defer client.Close()
	sess.restOffset = 42

	sess.handleREST("not-a-number")
	require.Equal(t, int64(42), sess.restOffset, "a malformed REST argument must not clobber a previous valid offset")
}
