package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

func (s *Service) ListDaemons() ([]model.Daemon, error) { return s.Store.ListDaemons() }

func (s *Service) GetDaemon(id uuid.UUID) (*model.Daemon, error) { return s.Store.GetDaemon(id) }

func (s *Service) CreateDaemon(name, host string, port int, apiKey string, location *string, secure bool) (*model.Daemon, error) {
	d := &model.Daemon{ID: idgen.New(), Name: name, Host: host, Port: port, APIKey: apiKey, Location: location, Secure: secure}
	if err := s.Store.CreateDaemon(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) UpdateDaemon(d *model.Daemon) error { return s.Store.UpdateDaemon(d) }

// DeleteDaemon cascades to owned allocations/ip-pools/containers (store
// layer transaction), per spec.md §3's ownership tree.
func (s *Service) DeleteDaemon(id uuid.UUID) error { return s.Store.DeleteDaemon(id) }

// HealthCheck probes a daemon on demand; health is never persisted
// (spec.md §3 "Health is probed by the control plane on demand; not
// persisted").
func (s *Service) HealthCheck(ctx context.Context, d *model.Daemon) error {
	return s.AgentFor(d).Health(ctx)
}
