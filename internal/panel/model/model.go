// Package model defines the control-plane's GORM-mapped data model, per
// spec.md §3. Every row uses a random uuid.UUID primary key (pkg/idgen),
// never an auto-increment integer, so the panel never needs a sequence
// shared with the daemon's own identifier space.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User is described in spec.md §3. TotpEnabled without TotpSecret is an
// invariant violation the service layer must never produce.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username       string    `gorm:"uniqueIndex;size:191;not null"`
	Email          *string   `gorm:"uniqueIndex;size:191"`
	PasswordHash   string    `gorm:"not null"`
	RoleID         *uuid.UUID `gorm:"type:uuid;index"`
	Role           *Role      `gorm:"foreignKey:RoleID"`
	TotpSecret     *string
	TotpEnabled    bool `gorm:"not null;default:false"`
	TotpVerifiedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Role is one of the three built-ins ("admin", "manager", "user") or a
// custom role created by an admin. Built-ins carry fixed IDs (see
// internal/panel/rbac) and may not be deleted.
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"uniqueIndex;size:64;not null"`
	Permissions []Permission `gorm:"many2many:role_permissions;"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is a closed enum, listed verbatim in spec.md §6.
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"uniqueIndex;size:128;not null"`
	Description string
}

// UserPermission is the direct user→permission grant join table, unioned
// with role permissions to form the effective set (spec.md §3, §8 invariant
// 8).
type UserPermission struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// Daemon is the control plane's record of a node agent.
type Daemon struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:191;not null"`
	Host      string    `gorm:"not null"`
	Port      int       `gorm:"not null"`
	APIKey    string    `gorm:"not null"`
	Location  *string
	Secure    bool `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ContainerStatus string

const (
	ContainerStatusStopped ContainerStatus = "stopped"
	ContainerStatusRunning ContainerStatus = "running"
	ContainerStatusUnknown ContainerStatus = "unknown"
)

// Container is described in spec.md §3. FtpUsername is derived
// (idgen.FTPUsername(ID)) and persisted for convenience; the agent derives
// it independently from the same ID, so the two must always agree.
type Container struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerUserID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	DaemonID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	DisplayName      string          `gorm:"size:191;not null"`
	Image            string          `gorm:"not null"`
	StartupScript    *string
	StopCommand      string          `gorm:"not null;default:'stop'"`
	Status           ContainerStatus `gorm:"size:16;not null;default:'stopped'"`
	MemoryLimitMiB   int             `gorm:"not null"`
	CPULimit         float64         `gorm:"not null"`
	DiskLimitMiB     int             `gorm:"not null"`
	SwapLimitMiB     int             `gorm:"not null"`
	IOWeight         int             `gorm:"not null;default:500"`
	FtpUsername      string          `gorm:"size:8;not null"`
	FtpPasswordHash  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ContainerUser grants shared access to a container; the owner never
// appears here (spec.md §3).
type ContainerUser struct {
	ContainerID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionLevel string    `gorm:"size:32;not null"`
}

// Allocation is a bookable (IP, port) pair on a daemon.
type Allocation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	DaemonID  uuid.UUID `gorm:"type:uuid;index;not null"`
	IP        string    `gorm:"size:64;not null"`
	Port      int       `gorm:"not null"`
	Protocol  string    `gorm:"size:8;not null;default:'tcp'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContainerAllocation binds an Allocation to a Container. "At most one
// is_primary per container" (spec.md §3) is kept by the store layer
// (internal/panel/store); "an allocation-id may appear in at most one row
// across all containers" is backed by the unique index on AllocationID.
type ContainerAllocation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ContainerID   uuid.UUID  `gorm:"type:uuid;index;not null"`
	AllocationID  *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	IP            string     `gorm:"size:64;not null"`
	Port          int        `gorm:"not null"`
	InternalPort  int        `gorm:"not null"`
	Protocol      string     `gorm:"size:8;not null;default:'tcp'"`
	IsPrimary     bool       `gorm:"not null;default:false"`
	CreatedAt     time.Time
}

// IpPool is purely descriptive (spec.md §3).
type IpPool struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DaemonID    uuid.UUID `gorm:"type:uuid;index;not null"`
	IP          string    `gorm:"size:64;not null"`
	CIDR        int       `gorm:"not null;default:32"`
	Description *string
	IsPrimary   bool `gorm:"not null;default:false"`
}

// PortMapping is the legacy overlay alongside allocations (spec.md §3);
// both are surfaced to clients.
type PortMapping struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ContainerID   uuid.UUID `gorm:"type:uuid;index;not null"`
	HostPort      int       `gorm:"not null"`
	ContainerPort int       `gorm:"not null"`
	Protocol      string    `gorm:"size:8;not null;default:'tcp'"`
}

type DatabaseEngineType string

const (
	DatabaseEnginePostgreSQL DatabaseEngineType = "postgresql"
	DatabaseEngineMySQL      DatabaseEngineType = "mysql"
	DatabaseEngineRedis      DatabaseEngineType = "redis"
)

type DatabaseServerStatus string

const (
	DatabaseServerStopped DatabaseServerStatus = "stopped"
	DatabaseServerRunning DatabaseServerStatus = "running"
)

// DatabaseServer is the shared, singleton-per-type engine container record
// (spec.md §3). Invariant: at most one per Type, enforced at the service
// layer since GORM unique indexes can't express "unique among rows where
// daemon_id = X" cleanly across engines without a generated column.
type DatabaseServer struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	DaemonID     *uuid.UUID `gorm:"type:uuid;index"`
	Type         DatabaseEngineType `gorm:"size:16;not null"`
	ContainerID  *string
	ContainerName string `gorm:"not null"`
	Host         string `gorm:"not null"`
	ExternalPort int    `gorm:"not null"`
	RootPassword string `gorm:"not null"`
	Status       DatabaseServerStatus `gorm:"size:16;not null;default:'stopped'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserDatabase is a per-tenant database carved out of a shared
// DatabaseServer. Invariants: at most one per (UserID, Type); for
// key-value, DBName is a numeric string slot unique per ServerID
// (spec.md §3, §8 invariants 3-4).
type UserDatabase struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_databases_user_type;not null"`
	ServerID   uuid.UUID `gorm:"type:uuid;index;not null"`
	Type       DatabaseEngineType `gorm:"size:16;uniqueIndex:idx_user_databases_user_type;not null"`
	DBName     string             `gorm:"not null"`
	DBUser     string             `gorm:"not null"`
	DBPassword string             `gorm:"not null"`
	Status     string             `gorm:"size:16;not null;default:'active'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Flake is a server template, imported idempotently on Slug (spec.md §3).
type Flake struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name               string    `gorm:"not null"`
	Slug               string    `gorm:"uniqueIndex;not null"`
	Author             *string
	Description        *string
	DockerImage        string `gorm:"not null"`
	StartupCommand     string `gorm:"not null"`
	ConfigFiles        string `gorm:"type:jsonb"`
	StartupDetection   *string
	InstallScript      *string
	Variables          []FlakeVariable `gorm:"foreignKey:FlakeID"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FlakeVariable is one entry of a Flake's ordered variable list.
type FlakeVariable struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	FlakeID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Name         string    `gorm:"not null"`
	Description  *string
	EnvVariable  string `gorm:"not null"`
	DefaultValue *string
	Rules        string `gorm:"not null"`
	UserViewable bool   `gorm:"not null;default:true"`
	UserEditable bool   `gorm:"not null;default:true"`
	SortOrder    int    `gorm:"not null;default:0"`
}

// PasswordResetToken has a 1-hour TTL (spec.md §3).
type PasswordResetToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Token     string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// InviteToken has a 7-day TTL (spec.md §3).
type InviteToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email     string     `gorm:"not null"`
	Token     string     `gorm:"uniqueIndex;size:64;not null"`
	RoleID    *uuid.UUID `gorm:"type:uuid"`
	InvitedBy uuid.UUID  `gorm:"type:uuid;not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	Used      bool       `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// TotpBackupCode is generated in sets of 10, hashed at cost 4 (spec.md §3,
// §4.C4).
type TotpBackupCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	CodeHash  string    `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

// TotpAttempt is the audit row named but never structured by spec.md §4.C4
// ("every attempt ... is logged in a TOTP attempts audit table"); shape is
// grounded on original_source/api/src/handlers/two_factor.rs, which reads
// this table back to rate-limit attempts (internal/panel/auth.Throttle).
type TotpAttempt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Success   bool      `gorm:"not null"`
	Method    string    `gorm:"size:16;not null"`
	CreatedAt time.Time
}

// AllModels is the full migration set, used by cmd/panel's serve command
// to auto-migrate on startup.
func AllModels() []interface{} {
	return []interface{}{
		&Permission{},
		&Role{},
		&User{},
		&UserPermission{},
		&Daemon{},
		&Container{},
		&ContainerUser{},
		&Allocation{},
		&ContainerAllocation{},
		&IpPool{},
		&PortMapping{},
		&DatabaseServer{},
		&UserDatabase{},
		&Flake{},
		&FlakeVariable{},
		&PasswordResetToken{},
		&InviteToken{},
		&TotpBackupCode{},
		&TotpAttempt{},
	}
}
