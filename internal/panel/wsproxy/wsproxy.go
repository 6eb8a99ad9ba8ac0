// Package wsproxy implements the control-plane's websocket bridge, named
// in spec.md §4.L7/§2 as the "control-plane bridge" sitting between a
// browser client and the owning daemon's own websocket endpoints (logs,
// stats, system). Grounded on the daemon's own ws.go for the upgrade +
// relay-loop shape (internal/daemon/api/ws.go), generalized here to dial
// *out* to the daemon with gorilla/websocket's client Dialer instead of
// only accepting inbound connections, since the panel is a proxy rather
// than the terminal endpoint.
package wsproxy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/auth"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/internal/panel/service"
)

// Proxy bridges an authenticated browser client to a container's owning
// daemon's websocket endpoint.
type Proxy struct {
	Log     *logrus.Entry
	Service *service.Service
	Tokens  *auth.TokenIssuer

	upgrader websocket.Upgrader
	dialer   websocket.Dialer
}

func New(log *logrus.Entry, svc *service.Service, tokens *auth.TokenIssuer) *Proxy {
	return &Proxy{
		Log:      log,
		Service:  svc,
		Tokens:   tokens,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		dialer:   websocket.Dialer{},
	}
}

// RegisterRoutes wires the three proxied endpoints onto the given router
// group, per spec.md §6's agent websocket table relayed 1:1 to clients.
func (p *Proxy) RegisterRoutes(r gin.IRouter) {
	r.GET("/containers/:id/logs", p.handleLogs)
	r.GET("/containers/:id/stats", p.handleStats)
	r.GET("/daemons/:id/system", p.handleSystem)
}

// authenticate validates a JWT passed as a query parameter, since browser
// websocket clients cannot set an Authorization header on the upgrade
// request.
func (p *Proxy) authenticate(c *gin.Context) (*auth.Claims, bool) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return nil, false
	}
	claims, err := p.Tokens.Parse(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return nil, false
	}
	return claims, true
}

func (p *Proxy) handleLogs(c *gin.Context) {
	p.proxyContainerStream(c, "logs")
}

func (p *Proxy) handleStats(c *gin.Context) {
	p.proxyContainerStream(c, "stats")
}

// proxyContainerStream resolves the container's owning daemon, authorizes
// the caller (owner, shared grant, or containers.manage/view_all), dials
// the daemon's own ws endpoint with its API key, and relays frames
// bidirectionally until either side closes.
func (p *Proxy) proxyContainerStream(c *gin.Context, kind string) {
	claims, ok := p.authenticate(c)
	if !ok {
		return
	}
	containerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid container id"})
		return
	}
	container, err := p.Service.Store.GetContainer(containerID)
	if err != nil {
		writeProxyError(c, err)
		return
	}
	if !p.authorizedForContainer(claims, container) {
		c.JSON(http.StatusForbidden, gin.H{"error": "no access to this container"})
		return
	}
	daemon, err := p.Service.Store.GetDaemon(container.DaemonID)
	if err != nil {
		writeProxyError(c, err)
		return
	}

	scheme := "ws"
	if daemon.Secure {
		scheme = "wss"
	}
	upstreamURL := fmt.Sprintf("%s://%s:%d/ws/containers/%s/%s?api_key=%s",
		scheme, daemon.Host, daemon.Port, containerID.String(), kind, daemon.APIKey)

	p.relay(c, upstreamURL)
}

func (p *Proxy) handleSystem(c *gin.Context) {
	claims, ok := p.authenticate(c)
	if !ok {
		return
	}
	if !hasAny(claims, "daemons.view", "admin.access") {
		c.JSON(http.StatusForbidden, gin.H{"error": "no access to this daemon"})
		return
	}
	daemonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid daemon id"})
		return
	}
	daemon, err := p.Service.GetDaemon(daemonID)
	if err != nil {
		writeProxyError(c, err)
		return
	}
	scheme := "ws"
	if daemon.Secure {
		scheme = "wss"
	}
	upstreamURL := fmt.Sprintf("%s://%s:%d/ws/system?api_key=%s", scheme, daemon.Host, daemon.Port, daemon.APIKey)
	p.relay(c, upstreamURL)
}

// relay upgrades the inbound client connection, dials the upstream daemon
// websocket, and pumps frames in both directions until one side closes.
func (p *Proxy) relay(c *gin.Context, upstreamURL string) {
	upstream, _, err := p.dialer.Dial(upstreamURL, nil)
	if err != nil {
		p.Log.WithError(err).WithField("url", scrubQuery(upstreamURL)).Warn("failed to dial upstream daemon websocket")
		c.JSON(http.StatusBadGateway, gin.H{"error": "daemon websocket unreachable"})
		return
	}
	defer upstream.Close()

	client, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		p.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, data, err := upstream.ReadMessage()
			if err != nil {
				return
			}
			if err := client.WriteMessage(messageType, data); err != nil {
				return
			}
		}
	}()

	for {
		messageType, data, err := client.ReadMessage()
		if err != nil {
			break
		}
		if err := upstream.WriteMessage(messageType, data); err != nil {
			break
		}
	}
	<-done
}

func (p *Proxy) authorizedForContainer(claims *auth.Claims, container *model.Container) bool {
	if hasAny(claims, "containers.manage", "containers.view_all") {
		return true
	}
	userID, err := uuid.Parse(claims.Sub)
	if err != nil {
		return false
	}
	if container.OwnerUserID == userID && hasAny(claims, "containers.manage_own") {
		return true
	}
	return p.Service.Store.DB.Where("container_id = ? AND user_id = ?", container.ID, userID).
		First(&model.ContainerUser{}).Error == nil
}

func hasAny(claims *auth.Claims, permissions ...string) bool {
	for _, perm := range permissions {
		if claims.Permissions[perm] || claims.Permissions["*"] {
			return true
		}
	}
	return false
}

func writeProxyError(c *gin.Context, err error) {
	if apiErr, ok := apierror.As(err); ok {
		c.JSON(apiErr.HTTPStatus(), gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func scrubQuery(u string) string {
	if i := strings.Index(u, "?"); i >= 0 {
		return u[:i]
	}
	return u
}
