package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raptor-panel/raptor/pkg/idgen"
)

type setFTPPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// handleSetFTPPassword implements spec.md §6 "POST
// /containers/:id/ftp {password} → credentials": derives the
// deterministic file-transfer username from the container id and stores
// the bcrypt hash, per spec.md §4.L6.
func (s *Server) handleSetFTPPassword(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	var req setFTPPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	username := idgen.FTPUsername(id)
	if err := s.Credentials.SetPassword(id.String(), username, req.Password); err != nil {
		writeError(c, http.StatusInternalServerError, "store credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username})
}
