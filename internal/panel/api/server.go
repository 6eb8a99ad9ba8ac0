// Package api is the control-plane's HTTP surface named in spec.md §6: a
// RBAC-gated REST facade over internal/panel/service. Grounded on the
// daemon's own api.Server (internal/daemon/api/server.go) for the shape —
// one struct owning its collaborators, gin-gonic router, small per-concern
// handler files — generalized here to carry JWT auth and permission
// middleware instead of a single shared API key, since the panel serves
// many distinct users rather than one trusted daemon caller.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/auth"
	"github.com/raptor-panel/raptor/internal/panel/service"
	"github.com/raptor-panel/raptor/internal/panel/wsproxy"
)

// Server is the control plane's HTTP facade. One instance per process.
type Server struct {
	Log     *logrus.Entry
	Service *service.Service
	Tokens  *auth.TokenIssuer
	WS      *wsproxy.Proxy
}

func New(log *logrus.Entry, svc *service.Service, tokens *auth.TokenIssuer) *Server {
	return &Server{Log: log, Service: svc, Tokens: tokens, WS: wsproxy.New(log, svc, tokens)}
}

// Router builds the gin engine with every route from spec.md §6's
// control-plane HTTP table plus SPEC_FULL.md's expansion (roles, flakes,
// container sharing, 2FA).
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	pub := r.Group("/auth")
	{
		pub.POST("/login", s.handleLogin)
		pub.POST("/register", s.handleRegister)
		pub.POST("/forgot-password", s.handleForgotPassword)
		pub.POST("/reset-password", s.handleResetPassword)
		pub.POST("/accept-invite", s.handleAcceptInvite)
		pub.POST("/2fa/validate", s.handleValidate2FA)
	}

	authed := r.Group("/")
	authed.Use(s.requireAuth())
	{
		authed.GET("/me", s.handleMe)
		authed.POST("/auth/2fa/setup", s.handleSetup2FA)
		authed.POST("/auth/2fa/verify", s.handleVerify2FA)
		authed.POST("/auth/2fa/disable", s.handleDisable2FA)

		users := authed.Group("/users")
		{
			users.GET("", s.requirePermission("users.view"), s.handleListUsers)
			users.GET("/:id", s.requirePermission("users.view"), s.handleGetUser)
			users.POST("", s.requirePermission("users.create"), s.handleCreateUser)
			users.PATCH("/:id", s.requirePermission("users.update"), s.handleUpdateUser)
			users.DELETE("/:id", s.requirePermission("users.delete"), s.handleDeleteUser)
			users.POST("/invite", s.requirePermission("users.create"), s.handleInvite)
		}

		roles := authed.Group("/roles")
		{
			roles.GET("", s.requirePermission("roles.view"), s.handleListRoles)
			roles.POST("", s.requirePermission("roles.create"), s.handleCreateRole)
			roles.DELETE("/:id", s.requirePermission("roles.delete"), s.handleDeleteRole)
		}

		daemons := authed.Group("/daemons")
		{
			daemons.GET("", s.requirePermission("daemons.view"), s.handleListDaemons)
			daemons.GET("/:id", s.requirePermission("daemons.view"), s.handleGetDaemon)
			daemons.POST("", s.requirePermission("daemons.create"), s.handleCreateDaemon)
			daemons.PATCH("/:id", s.requirePermission("daemons.update"), s.handleUpdateDaemon)
			daemons.DELETE("/:id", s.requirePermission("daemons.delete"), s.handleDeleteDaemon)
			daemons.GET("/:id/health", s.requirePermission("daemons.view"), s.handleDaemonHealth)
			daemons.GET("/:id/allocations", s.requirePermission("allocations.view"), s.handleListAllocations)
			daemons.POST("/:id/allocations", s.requirePermission("allocations.create"), s.handleCreateAllocation)
		}

		flakes := authed.Group("/flakes")
		{
			flakes.GET("", s.requirePermission("flakes.view"), s.handleListFlakes)
			flakes.GET("/:id", s.requirePermission("flakes.view"), s.handleGetFlake)
			flakes.POST("", s.requirePermission("flakes.create"), s.handleImportFlake)
			flakes.DELETE("/:id", s.requirePermission("flakes.delete"), s.handleDeleteFlake)
		}

		containers := authed.Group("/containers")
		{
			containers.GET("", s.handleListContainers)
			containers.GET("/:id", s.requireContainerAccess(), s.handleGetContainer)
			containers.POST("", s.requirePermission("containers.create"), s.handleCreateContainer)
			containers.DELETE("/:id", s.requireContainerAccess(), s.handleDeleteContainer)
			containers.POST("/:id/start", s.requireContainerAccess(), s.handleStartContainer)
			containers.POST("/:id/stop", s.requireContainerAccess(), s.handleStopContainer)
			containers.POST("/:id/restart", s.requireContainerAccess(), s.handleRestartContainer)
			containers.POST("/:id/kill", s.requireContainerAccess(), s.handleKillContainer)
			containers.PATCH("/:id/resources", s.requireContainerAccess(), s.handleUpdateResources)
			containers.POST("/:id/allocations", s.requireContainerAccess(), s.handleAssignContainerAllocation)
			containers.DELETE("/:id/allocations/:allocationId", s.requireContainerAccess(), s.handleRemoveContainerAllocation)
			containers.POST("/:id/share", s.requireContainerAccess(), s.handleShareContainer)
			containers.DELETE("/:id/share/:userId", s.requireContainerAccess(), s.handleUnshareContainer)
		}

		// UserDatabase rows belong to a user, not a container (spec.md §3
		// "UserDatabase — (id, user-id, ...)"), so these nest under the
		// caller's own account rather than a container.
		databases := authed.Group("/me/databases")
		{
			databases.GET("", s.handleListUserDatabases)
			databases.POST("", s.handleCreateUserDatabase)
			databases.DELETE("/:dbId", s.handleDeleteUserDatabase)
			databases.POST("/:dbId/reset-password", s.handleResetDatabasePassword)
		}

		dbServers := authed.Group("/database-servers")
		{
			dbServers.GET("", s.requirePermission("daemons.view"), s.handleListDatabaseServers)
			dbServers.POST("", s.requirePermission("daemons.update"), s.handleEnsureDatabaseServer)
		}
	}

	// ws routes authenticate via a ?token= query param (see
	// wsproxy.Proxy.authenticate) rather than requireAuth's bearer header,
	// since browser websocket clients cannot set one on the upgrade request.
	s.WS.RegisterRoutes(r.Group("/ws"))

	return r
}

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

// writeError renders an apierror.Error at its mapped status, falling back
// to 500 for anything else, mirroring the daemon's writeError.
func writeError(c *gin.Context, err error) {
	if apiErr, ok := apierror.As(err); ok {
		c.JSON(apiErr.HTTPStatus(), gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
