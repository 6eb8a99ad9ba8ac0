package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListAllocations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"used": s.Allocations.snapshot()})
}

type assignAllocationRequest struct {
	IP   string `json:"ip" binding:"required"`
	Port int    `json:"port" binding:"required"`
}

func (s *Server) handleAssignAllocation(c *gin.Context) {
	var req assignAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !s.Allocations.reserve(req.IP, req.Port) {
		writeError(c, http.StatusBadRequest, "port already reserved")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ip": req.IP, "port": req.Port})
}
