package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
)

func (s *Server) handleListUserDatabases(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	dbs, err := s.Service.Store.ListUserDatabases(userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dbs)
}

type createUserDatabaseRequest struct {
	Type     string `json:"type" binding:"required"`
	Username string `json:"username"`
}

func (s *Server) handleCreateUserDatabase(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req createUserDatabaseRequest
	if !bindJSON(c, &req) {
		return
	}
	db, err := s.Service.CreateUserDatabase(c.Request.Context(), userID, model.DatabaseEngineType(req.Type), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, db)
}

// lookupOwnUserDatabase fetches a UserDatabase row and verifies the caller
// owns it, since /me/databases/:dbId is scoped to the caller's own account.
func (s *Server) lookupOwnUserDatabase(c *gin.Context) (*model.UserDatabase, bool) {
	dbID, ok := parseUUIDParam(c, "dbId")
	if !ok {
		return nil, false
	}
	userID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	dbs, err := s.Service.Store.ListUserDatabases(userID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	for i := range dbs {
		if dbs[i].ID == dbID {
			return &dbs[i], true
		}
	}
	writeError(c, apierror.NotFound("database not found"))
	return nil, false
}

func (s *Server) handleDeleteUserDatabase(c *gin.Context) {
	db, ok := s.lookupOwnUserDatabase(c)
	if !ok {
		return
	}
	if err := s.Service.DeleteUserDatabase(c.Request.Context(), db); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetDatabasePassword(c *gin.Context) {
	db, ok := s.lookupOwnUserDatabase(c)
	if !ok {
		return
	}
	password, err := s.Service.ResetUserDatabasePassword(c.Request.Context(), db)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"password": password})
}
