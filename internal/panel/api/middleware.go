package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/auth"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/internal/panel/rbac"
)

const claimsKey = "claims"

// requireAuth parses the Authorization: Bearer <JWT> header and stashes
// the claims in the gin context, per spec.md §6 "JWT claims".
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			writeError(c, apierror.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}
		claims, err := s.Tokens.Parse(token)
		if err != nil {
			writeError(c, apierror.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func currentUserID(c *gin.Context) (uuid.UUID, error) {
	claims := currentClaims(c)
	if claims == nil {
		return uuid.UUID{}, apierror.Unauthorized("not authenticated")
	}
	return uuid.Parse(claims.Sub)
}

func effectivePermissions(claims *auth.Claims) []string {
	perms := make([]string, 0, len(claims.Permissions))
	for p, granted := range claims.Permissions {
		if granted {
			perms = append(perms, p)
		}
	}
	return perms
}

// requirePermission implements the RBAC gate described in spec.md §6: a
// request is allowed if the caller's effective set (encoded into the JWT
// at mint time, per rbac.EffectiveSet) grants the named permission or the
// wildcard.
func (s *Server) requirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			writeError(c, apierror.Unauthorized("not authenticated"))
			c.Abort()
			return
		}
		if !rbac.Has(effectivePermissions(claims), permission) {
			writeError(c, apierror.Forbidden("missing permission: "+permission))
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireContainerAccess allows the request through if the caller has
// containers.manage (or view_all for GETs), or owns the container, or
// holds a ContainerUser grant on it (spec.md §3 ContainerUser "shared
// access").
func (s *Server) requireContainerAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			writeError(c, apierror.Unauthorized("not authenticated"))
			c.Abort()
			return
		}
		perms := effectivePermissions(claims)
		if rbac.HasAny(perms, "containers.manage") ||
			(c.Request.Method == http.MethodGet && rbac.HasAny(perms, "containers.view_all")) {
			c.Next()
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			writeError(c, apierror.BadRequest("invalid container id"))
			c.Abort()
			return
		}
		userID, err := currentUserID(c)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		container, err := s.Service.Store.GetContainer(id)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		if container.OwnerUserID == userID && rbac.HasAny(perms, "containers.manage_own") {
			c.Next()
			return
		}
		if s.hasSharedAccess(container, userID) {
			c.Next()
			return
		}
		writeError(c, apierror.Forbidden("no access to this container"))
		c.Abort()
	}
}

func (s *Server) hasSharedAccess(container *model.Container, userID uuid.UUID) bool {
	var cu model.ContainerUser
	err := s.Service.Store.DB.Where("container_id = ? AND user_id = ?", container.ID, userID).First(&cu).Error
	return err == nil
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, apierror.BadRequest(err.Error()))
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, apierror.BadRequest("invalid "+name))
		return uuid.UUID{}, false
	}
	return id, true
}

func parseUUIDField(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(c, apierror.BadRequest("invalid id"))
		return uuid.UUID{}, false
	}
	return id, true
}

func daemonEngineType(raw string) model.DatabaseEngineType {
	return model.DatabaseEngineType(raw)
}
