package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/raptor-panel/raptor/internal/daemon/engine"
	"github.com/raptor-panel/raptor/internal/daemon/ftp"
)

// containerJail builds the same jailed path resolver the FTP backend uses,
// so file operations resolve paths exactly like the file-transfer backend.
// Like that backend, it does not evaluate symlinks, so a symlink inside the
// volume can point outside it.
func (s *Server) containerJail(name string) *ftp.Jail {
	return &ftp.Jail{Home: engine.VolumePath(s.FTPBasePath, name)}
}

type fileEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size"`
}

func (s *Server) handleFilesList(c *gin.Context) {
	jail := s.containerJail(c.Param("name"))
	if err := jail.EnsureHome(); err != nil {
		writeError(c, http.StatusInternalServerError, "ensure volume directory")
		return
	}
	dir := jail.Resolve(c.Query("path"))

	entries, err := os.ReadDir(dir)
	if err != nil {
		writeError(c, http.StatusNotFound, "directory not found")
		return
	}

	out := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, fileEntry{Name: e.Name(), IsDir: e.IsDir(), Size: info.Size()})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleFilesRead(c *gin.Context) {
	jail := s.containerJail(c.Param("name"))
	path := jail.Resolve(c.Query("path"))

	f, err := os.Open(path)
	if err != nil {
		writeError(c, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	c.Status(http.StatusOK)
	c.Header("Content-Type", "application/octet-stream")
	_, _ = io.Copy(c.Writer, f)
}

type writeFileRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

// handleFilesWrite writes a file, creating parent directories, per
// spec.md §4.L8 "Write creates parents".
func (s *Server) handleFilesWrite(c *gin.Context) {
	jail := s.containerJail(c.Param("name"))
	var req writeFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	path := jail.Resolve(req.Path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		writeError(c, http.StatusInternalServerError, "create parent directories")
		return
	}
	if err := os.WriteFile(path, []byte(req.Content), 0o644); err != nil {
		writeError(c, http.StatusInternalServerError, "write file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type mkdirRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Server) handleFilesMkdir(c *gin.Context) {
	jail := s.containerJail(c.Param("name"))
	var req mkdirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	path := jail.Resolve(req.Path)
	if err := os.MkdirAll(path, 0o755); err != nil {
		writeError(c, http.StatusInternalServerError, "create directory")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleFilesDelete removes a file (non-recursive) or directory
// (recursive), per spec.md §4.L8 "delete is non-recursive for files and
// recursive for directories".
func (s *Server) handleFilesDelete(c *gin.Context) {
	jail := s.containerJail(c.Param("name"))
	path := jail.Resolve(c.Query("path"))

	info, err := os.Stat(path)
	if err != nil {
		writeError(c, http.StatusNotFound, "not found")
		return
	}

	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "delete failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
