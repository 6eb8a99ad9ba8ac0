// Package api is the L8 agent HTTP/WS surface named in spec.md §4.L8: an
// authenticated REST+websocket facade over the engine driver, state store,
// credential store, per-container locks, database provisioner, and
// streaming registries built in the sibling packages. Grounded on the
// teacher's gocui-based view wiring (pkg/gui/*) only for the idea of one
// struct owning every collaborator and dispatching to small per-concern
// handler files — the HTTP framework itself (gin-gonic) and the websocket
// upgrader (gorilla/websocket) come from the wider retrieval pack, since
// the teacher is a TUI and has no HTTP layer of its own.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/raptor-panel/raptor/internal/daemon/credentials"
	"github.com/raptor-panel/raptor/internal/daemon/dbprovisioner"
	"github.com/raptor-panel/raptor/internal/daemon/engine"
	"github.com/raptor-panel/raptor/internal/daemon/ftp"
	"github.com/raptor-panel/raptor/internal/daemon/locks"
	"github.com/raptor-panel/raptor/internal/daemon/state"
	"github.com/raptor-panel/raptor/internal/daemon/stream"
)

// Server is the agent's HTTP/WS facade. One instance per daemon process.
type Server struct {
	Log         *logrus.Entry
	APIKey      string
	FTPBasePath string

	Engine        *engine.Driver
	State         *state.Store
	Credentials   *credentials.Store
	Locks         *locks.Registry
	Provisioner   *dbprovisioner.Provisioner
	Logs          *stream.Registry[engine.LogLine]
	Stats         *stream.Registry[engine.ContainerStats]
	Allocations   *allocationPool

	upgrader websocket.Upgrader
}

// New constructs a Server wired to its collaborators. logsRegistry and
// statsRegistry must already have their Start producer functions set to
// drive engine.LogsStream/StatsStream per spec.md §4.L7.
func New(log *logrus.Entry, apiKey, ftpBasePath string, drv *engine.Driver, st *state.Store, creds *credentials.Store, lockReg *locks.Registry, prov *dbprovisioner.Provisioner, logs *stream.Registry[engine.LogLine], stats *stream.Registry[engine.ContainerStats]) *Server {
	return &Server{
		Log:         log,
		APIKey:      apiKey,
		FTPBasePath: ftpBasePath,
		Engine:      drv,
		State:       st,
		Credentials: creds,
		Locks:       lockReg,
		Provisioner: prov,
		Logs:        logs,
		Stats:       stats,
		Allocations: newAllocationPool(),
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Router builds the gin engine with every route from spec.md §6's agent
// HTTP table, gated by the X-API-Key/api_key authentication spec.md §4.L8
// requires.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)

	authed := r.Group("/")
	authed.Use(s.requireAPIKey())
	{
		authed.GET("/system", s.handleSystem)

		authed.GET("/containers", s.handleListContainers)
		authed.POST("/containers", s.handleCreateContainer)
		authed.GET("/containers/:id", s.handleInspectContainer)
		authed.PATCH("/containers/:id", s.handleUpdateContainer)
		authed.DELETE("/containers/:id", s.handleDeleteContainer)
		authed.POST("/containers/:id/start", s.handleStartContainer)
		authed.POST("/containers/:id/stop", s.handleStopContainer)
		authed.POST("/containers/:id/graceful-stop", s.handleGracefulStopContainer)
		authed.POST("/containers/:id/restart", s.handleRestartContainer)
		authed.POST("/containers/:id/kill", s.handleKillContainer)
		authed.POST("/containers/:id/recreate", s.handleRecreateContainer)
		authed.POST("/containers/:id/command", s.handleSendCommand)
		authed.POST("/containers/:id/ftp", s.handleSetFTPPassword)
		authed.GET("/containers/:id/stats", s.handleStatsOnce)
		authed.GET("/containers/:id/status", s.handleStatus)

		authed.GET("/containers/:name/files", s.handleFilesList)
		authed.GET("/containers/:name/files/content", s.handleFilesRead)
		authed.POST("/containers/:name/files/content", s.handleFilesWrite)
		authed.POST("/containers/:name/files/directory", s.handleFilesMkdir)
		authed.DELETE("/containers/:name/files", s.handleFilesDelete)

		authed.GET("/allocations", s.handleListAllocations)
		authed.POST("/allocations/assign", s.handleAssignAllocation)

		authed.POST("/databases/servers", s.handleEnsureDatabaseServer)
		authed.GET("/databases/servers", s.handleListDatabaseServers)
		authed.POST("/databases/users", s.handleCreateUserDB)
		authed.DELETE("/databases/users", s.handleDeleteUserDB)
		authed.POST("/databases/users/reset-password", s.handleResetUserDBPassword)
	}

	ws := r.Group("/ws")
	ws.Use(s.requireAPIKeyQuery())
	{
		ws.GET("/containers/:id/logs", s.handleWSLogs)
		ws.GET("/containers/:id/stats", s.handleWSStats)
		ws.GET("/system", s.handleWSSystem)
	}

	return r
}

// requestLogger mirrors the teacher's logrus usage: one structured line
// per request rather than gin's default access-log format.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("handled request")
	}
}

func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != s.APIKey {
			writeError(c, http.StatusUnauthorized, "invalid or missing X-API-Key")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) requireAPIKeyQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("api_key") != s.APIKey {
			writeError(c, http.StatusUnauthorized, "invalid or missing api_key")
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.Engine.Ping(c.Request.Context()); err != nil {
		writeError(c, http.StatusServiceUnavailable, "engine unreachable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
