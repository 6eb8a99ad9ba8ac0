// Package dbprovisioner is the L5 shared DB provisioner named in spec.md
// §4.L5: one engine-container-per-type (postgresql, mysql, redis) serving
// all tenants, with per-tenant isolation at the database/user/ACL level.
// Per spec.md §9 "Dynamic dispatch", the three engines share one capability
// set and are implemented as a tagged variant switched in one place, not
// per-type classes — grounded on the teacher's own single-DockerCommand
// dispatch for every container regardless of what's running inside it
// (pkg/commands/docker.go), generalized here to branch on EngineType
// instead of treating every container identically.
package dbprovisioner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/daemon/engine"
)

// EngineType is the tagged variant spec.md §9 requires.
type EngineType string

const (
	EnginePostgreSQL EngineType = "postgresql"
	EngineMySQL      EngineType = "mysql"
	EngineRedis      EngineType = "redis"
)

// ServerStatus mirrors the DatabaseServer status field from spec.md §3.
type ServerStatus string

const (
	ServerStopped ServerStatus = "stopped"
	ServerRunning ServerStatus = "running"
)

// Server is the agent-side view of a DatabaseServer record (spec.md §3):
// one per type, holding enough to drive the engine container backing it.
type Server struct {
	Name         string       `json:"name"`
	Type         EngineType   `json:"type"`
	ContainerID  string       `json:"containerId,omitempty"`
	ExternalPort int          `json:"externalPort"`
	RootPassword string       `json:"rootPassword"`
	Status       ServerStatus `json:"status"`
}

// UserDB is the agent-side request/result shape for per-user database
// creation, mirroring the UserDatabase entity from spec.md §3.
type UserDB struct {
	ServerName string
	Type       EngineType
	DBName     string
	DBUser     string
	DBPassword string
}

const (
	memoryLimitMiB  = 1024
	settleDelay     = 5 * time.Second
	keyValueMaxSlot = 10000
)

// imageFor returns the canonical image for an engine type, per spec.md
// §4.L5 "Ensure-running".
func imageFor(t EngineType) string {
	switch t {
	case EnginePostgreSQL:
		return "postgres:16-alpine"
	case EngineMySQL:
		return "mysql:8.0"
	case EngineRedis:
		return "redis:7-alpine"
	default:
		return ""
	}
}

func internalPortFor(t EngineType) string {
	switch t {
	case EnginePostgreSQL:
		return "5432"
	case EngineMySQL:
		return "3306"
	case EngineRedis:
		return "6379"
	default:
		return ""
	}
}

// Provisioner owns the per-type singleton servers and the locks guarding
// each one, plus the state file recording them across restarts.
type Provisioner struct {
	log    *logrus.Entry
	engine *engine.Driver
	dataDir string

	mu      sync.Mutex
	servers map[EngineType]*Server
	locks   map[EngineType]*sync.Mutex
}

// New constructs a Provisioner and loads any persisted servers.
func New(log *logrus.Entry, drv *engine.Driver, dataDir string) (*Provisioner, error) {
	p := &Provisioner{
		log:     log,
		engine:  drv,
		dataDir: dataDir,
		servers: map[EngineType]*Server{},
		locks: map[EngineType]*sync.Mutex{
			EnginePostgreSQL: {},
			EngineMySQL:      {},
			EngineRedis:      {},
		},
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provisioner) lockFor(t EngineType) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locks[t]
}

// EnsureRunning brings the singleton server for t to the running state,
// per spec.md §4.L5 "Ensure-running".
func (p *Provisioner) EnsureRunning(ctx context.Context, t EngineType, rootPassword string) (*Server, error) {
	lock := p.lockFor(t)
	lock.Lock()
	defer lock.Unlock()

	p.mu.Lock()
	server, exists := p.servers[t]
	p.mu.Unlock()

	if exists && server.ContainerID != "" {
		running, err := p.engine.IsRunning(ctx, server.ContainerID)
		if err == nil && running {
			return server, nil
		}
		if err == nil {
			if startErr := p.engine.Start(ctx, server.ContainerID); startErr != nil {
				return nil, apierror.AgentError("start db server", startErr)
			}
			time.Sleep(settleDelay)
			server.Status = ServerRunning
			return server, p.save()
		}
	}

	name := fmt.Sprintf("raptor-db-%s", t)
	image := imageFor(t)
	if image == "" {
		return nil, apierror.BadRequest(fmt.Sprintf("unsupported database engine type %q", t))
	}

	externalPort, err := freeHostPort()
	if err != nil {
		return nil, apierror.Internal("allocate db server port", err)
	}

	dataVolume := fmt.Sprintf("%s/database_volumes/%s", p.dataDir, name)
	if err := ensureDir(dataVolume); err != nil {
		return nil, apierror.Internal("create db server data volume", err)
	}

	spec := engine.CreateSpec{
		Name:          name,
		Image:         image,
		RestartPolicy: "unless-stopped",
		MemoryMiB:     memoryLimitMiB,
		Env:           envFor(t, rootPassword),
		Binds: []engine.BindMount{
			{Source: dataVolume, Target: "/data"},
		},
		Ports: engine.PortBindings{
			internalPortFor(t) + "/tcp": {{HostIP: "0.0.0.0", HostPort: fmt.Sprintf("%d", externalPort)}},
		},
	}

	if t == EngineRedis {
		if err := ensureRedisACLSeed(dataVolume, rootPassword); err != nil {
			return nil, apierror.Internal("seed redis acl file", err)
		}
		spec.Command = []string{"redis-server", "--databases", fmt.Sprintf("%d", keyValueMaxSlot), "--aclfile", "/data/users.acl"}
	}

	if err := p.engine.PullImage(ctx, image); err != nil {
		p.log.WithError(err).WithField("image", image).Warn("pull of database image failed, continuing")
	}

	id, err := p.engine.Create(ctx, spec)
	if err != nil {
		return nil, apierror.AgentError("create db server container", err)
	}
	if err := p.engine.Start(ctx, id); err != nil {
		return nil, apierror.AgentError("start db server container", err)
	}
	time.Sleep(settleDelay)

	server = &Server{
		Name:         name,
		Type:         t,
		ContainerID:  id,
		ExternalPort: externalPort,
		RootPassword: rootPassword,
		Status:       ServerRunning,
	}

	p.mu.Lock()
	p.servers[t] = server
	p.mu.Unlock()

	return server, p.save()
}

func envFor(t EngineType, rootPassword string) map[string]string {
	switch t {
	case EnginePostgreSQL:
		return map[string]string{"POSTGRES_PASSWORD": rootPassword, "POSTGRES_DB": "postgres"}
	case EngineMySQL:
		return map[string]string{"MYSQL_ROOT_PASSWORD": rootPassword}
	default:
		return nil
	}
}
