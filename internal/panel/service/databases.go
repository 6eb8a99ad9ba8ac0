package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/agentclient"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

// EnsureDatabaseServer implements spec.md §4.L5 "Ensure-running" from the
// control-plane side: at most one DatabaseServer per type
// (control-plane-enforced per spec.md §3).
func (s *Service) EnsureDatabaseServer(ctx context.Context, daemonID uuid.UUID, t model.DatabaseEngineType, rootPassword string) (*model.DatabaseServer, error) {
	d, err := s.Store.GetDaemon(daemonID)
	if err != nil {
		return nil, err
	}
	agent := s.AgentFor(d)
	resp, err := agent.EnsureDatabaseServer(ctx, agentclient.EnsureDatabaseServerRequest{
		Type: string(t), RootPassword: rootPassword,
	})
	if err != nil {
		return nil, err
	}
	return s.Store.EnsureDatabaseServer(t, func() model.DatabaseServer {
		return model.DatabaseServer{
			ID:            idgen.New(),
			DaemonID:      &daemonID,
			Type:          t,
			ContainerName: stringField(resp, "containerName"),
			Host:          stringField(resp, "host"),
			ExternalPort:  intField(resp, "externalPort"),
			RootPassword:  rootPassword,
			Status:        model.DatabaseServerRunning,
		}
	})
}

func (s *Service) ListDatabaseServers() ([]model.DatabaseServer, error) {
	return s.Store.ListDatabaseServers()
}

// CreateUserDatabase implements spec.md §4.L5 "Per-user DB creation" plus
// §8 invariants 3-4: at most one UserDatabase per (user, type); for
// key-value, the lowest free numeric slot.
func (s *Service) CreateUserDatabase(ctx context.Context, userID uuid.UUID, t model.DatabaseEngineType, requestedUser string) (*model.UserDatabase, error) {
	server, err := s.Store.GetDatabaseServerByType(t)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.GetUserDatabase(userID, t); err == nil {
		return nil, apierror.BadRequest("user already has a database of this type")
	}

	dbUser := requestedUser
	if dbUser == "" {
		dbUser = "u_" + userID.String()[:8]
	}
	dbName := dbUser
	if t == model.DatabaseEngineRedis {
		slot, err := s.Store.NextKeyValueSlot(server.ID)
		if err != nil {
			return nil, err
		}
		dbName = strconv.Itoa(slot)
	}
	dbPassword, err := randomPassword()
	if err != nil {
		return nil, apierror.Internal("generate database password", err)
	}

	d, err := s.Store.GetDaemon(*server.DaemonID)
	if err != nil {
		return nil, err
	}
	agent := s.AgentFor(d)
	if err := agent.CreateUserDB(ctx, agentclient.UserDBRequest{
		Type: string(t), DBName: dbName, DBUser: dbUser, DBPassword: dbPassword,
	}); err != nil {
		return nil, err
	}

	row := &model.UserDatabase{
		ID: idgen.New(), UserID: userID, ServerID: server.ID, Type: t,
		DBName: dbName, DBUser: dbUser, DBPassword: dbPassword, Status: "active",
	}
	if err := s.Store.CreateUserDatabase(row); err != nil {
		s.Log.WithError(err).Warn("user database created on agent but DB insert failed")
		return nil, err
	}
	return row, nil
}

// DeleteUserDatabase performs best-effort agent-side teardown per spec.md
// §4.L5 "Delete ... do not fail the overall operation on individual
// engine-command errors", then removes the DB row regardless of outcome.
func (s *Service) DeleteUserDatabase(ctx context.Context, db *model.UserDatabase) error {
	server, err := s.Store.GetDatabaseServerByType(db.Type)
	if err != nil {
		return s.Store.DeleteUserDatabase(db.ID)
	}
	if server.DaemonID != nil {
		d, err := s.Store.GetDaemon(*server.DaemonID)
		if err == nil {
			agent := s.AgentFor(d)
			if err := agent.DeleteUserDB(ctx, agentclient.UserDBRequest{
				Type: string(db.Type), DBName: db.DBName, DBUser: db.DBUser,
			}); err != nil {
				s.Log.WithError(err).Warn("best-effort agent-side database teardown failed")
			}
		}
	}
	return s.Store.DeleteUserDatabase(db.ID)
}

// ResetUserDatabasePassword must succeed end-to-end (spec.md §4.L5
// "reset-password which must succeed").
func (s *Service) ResetUserDatabasePassword(ctx context.Context, db *model.UserDatabase) (string, error) {
	server, err := s.Store.GetDatabaseServerByType(db.Type)
	if err != nil {
		return "", err
	}
	if server.DaemonID == nil {
		return "", apierror.Internal("database server has no daemon", nil)
	}
	d, err := s.Store.GetDaemon(*server.DaemonID)
	if err != nil {
		return "", err
	}
	newPassword, err := randomPassword()
	if err != nil {
		return "", apierror.Internal("generate database password", err)
	}
	agent := s.AgentFor(d)
	if err := agent.ResetUserDBPassword(ctx, agentclient.UserDBRequest{
		Type: string(db.Type), DBName: db.DBName, DBUser: db.DBUser,
	}, newPassword); err != nil {
		return "", err
	}
	db.DBPassword = newPassword
	if err := s.Store.UpdateUserDatabase(db); err != nil {
		return "", err
	}
	return newPassword, nil
}

func randomPassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
