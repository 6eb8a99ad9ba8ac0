// Package service is the control plane's "hard piece" per spec.md §1: the
// allocation/lifecycle coordinator that keeps the authoritative database
// view of containers, allocations, and permissions consistent with the
// agent's local view through idempotent proxy operations (spec.md §4.C2).
package service

import (
	"github.com/sirupsen/logrus"

	"github.com/raptor-panel/raptor/internal/panel/agentclient"
	"github.com/raptor-panel/raptor/internal/panel/auth"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/internal/panel/rbac"
	"github.com/raptor-panel/raptor/internal/panel/store"
)

type Service struct {
	Store    *store.Store
	Tokens   *auth.TokenIssuer
	Throttle *auth.Throttle
	Log      *logrus.Entry

	BcryptCost int
	AppURL     string
}

func New(st *store.Store, tokens *auth.TokenIssuer, log *logrus.Entry, bcryptCost int, appURL string) *Service {
	return &Service{
		Store:      st,
		Tokens:     tokens,
		Throttle:   auth.NewThrottle(st),
		Log:        log,
		BcryptCost: bcryptCost,
		AppURL:     appURL,
	}
}

// AgentFor builds an agentclient.Client for a given daemon record, per
// spec.md §6 Daemon (host, port, api-key, secure flag).
func (s *Service) AgentFor(d *model.Daemon) *agentclient.Client {
	return agentclient.New(d.Host, d.Port, d.APIKey, d.Secure)
}

// EffectivePermissions implements spec.md §8 invariant 8: the union of
// role permissions and direct user-permission grants, deduped and sorted.
func (s *Service) EffectivePermissions(u *model.User) ([]string, error) {
	var rolePerms []string
	if u.Role != nil {
		for _, p := range u.Role.Permissions {
			rolePerms = append(rolePerms, p.Name)
		}
	}
	userPerms, err := s.Store.UserPermissionNames(u.ID)
	if err != nil {
		return nil, err
	}
	return rbac.EffectiveSet(rolePerms, userPerms), nil
}
