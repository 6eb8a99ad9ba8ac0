package store

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
)

// GetDatabaseServerByType enforces spec.md §3's invariant "at most one
// DatabaseServer per type" by construction: callers only ever look one up
// by type, never create a second without going through here first.
func (s *Store) GetDatabaseServerByType(t model.DatabaseEngineType) (*model.DatabaseServer, error) {
	var srv model.DatabaseServer
	if err := s.DB.First(&srv, "type = ?", t).Error; err != nil {
		return nil, translateNotFound(err, "database server")
	}
	return &srv, nil
}

func (s *Store) ListDatabaseServers() ([]model.DatabaseServer, error) {
	var servers []model.DatabaseServer
	if err := s.DB.Find(&servers).Error; err != nil {
		return nil, apierror.Database("list database servers", err)
	}
	return servers, nil
}

// EnsureDatabaseServer upserts the singleton row for a type: returns the
// existing row if present, otherwise creates one.
func (s *Store) EnsureDatabaseServer(t model.DatabaseEngineType, build func() model.DatabaseServer) (*model.DatabaseServer, error) {
	existing, err := s.GetDatabaseServerByType(t)
	if err == nil {
		return existing, nil
	}
	if ae, ok := apierror.As(err); !ok || ae.Kind != apierror.KindNotFound {
		return nil, err
	}
	row := build()
	if err := s.DB.Create(&row).Error; err != nil {
		return nil, apierror.Database("create database server", err)
	}
	return &row, nil
}

func (s *Store) UpdateDatabaseServer(srv *model.DatabaseServer) error {
	if err := s.DB.Save(srv).Error; err != nil {
		return apierror.Database("update database server", err)
	}
	return nil
}

// GetUserDatabase enforces §8 invariant 3 (at most one UserDatabase per
// user/type) by construction: callers check this before CreateUserDatabase.
func (s *Store) GetUserDatabase(userID uuid.UUID, t model.DatabaseEngineType) (*model.UserDatabase, error) {
	var db model.UserDatabase
	if err := s.DB.First(&db, "user_id = ? AND type = ?", userID, t).Error; err != nil {
		return nil, translateNotFound(err, "user database")
	}
	return &db, nil
}

func (s *Store) ListUserDatabases(userID uuid.UUID) ([]model.UserDatabase, error) {
	var dbs []model.UserDatabase
	if err := s.DB.Where("user_id = ?", userID).Find(&dbs).Error; err != nil {
		return nil, apierror.Database("list user databases", err)
	}
	return dbs, nil
}

// NextKeyValueSlot finds the lowest integer slot in [0, 10000) not already
// used on a server, per spec.md §4.L5 "choose the lowest integer N ∈ [0,
// 10000) not used on this server" and §8 invariant 4 (pairwise distinct
// slots per server). Returns apierror.BadRequest when exhausted.
func (s *Store) NextKeyValueSlot(serverID uuid.UUID) (int, error) {
	var used []string
	if err := s.DB.Model(&model.UserDatabase{}).Where("server_id = ?", serverID).Pluck("db_name", &used).Error; err != nil {
		return 0, apierror.Database("list key-value slots", err)
	}
	taken := make(map[int]struct{}, len(used))
	for _, u := range used {
		n, err := strconv.Atoi(u)
		if err == nil {
			taken[n] = struct{}{}
		}
	}
	for n := 0; n < 10000; n++ {
		if _, ok := taken[n]; !ok {
			return n, nil
		}
	}
	return 0, apierror.BadRequest("no free key-value database slots remain on this server")
}

// CreateUserDatabase enforces §8 invariant 3 (at most one UserDatabase per
// user/type) the same way AssignAllocation enforces its own exclusivity
// invariant (store/allocations.go): the pre-check inside the transaction
// gives a friendly apierror.BadRequest in the common case, but the actual
// atomicity guarantee against two concurrent creates is the
// idx_user_databases_user_type unique index on model.UserDatabase — under
// Postgres's default READ COMMITTED isolation, a SELECT followed by an
// INSERT in one transaction is not otherwise atomic against a concurrent
// transaction performing the same check.
func (s *Store) CreateUserDatabase(db *model.UserDatabase) error {
	err := s.DB.Transaction(func(tx *txDB) error {
		var existing model.UserDatabase
		err := tx.Where("user_id = ? AND type = ?", db.UserID, db.Type).First(&existing).Error
		if err == nil {
			return apierror.BadRequest("user already has a database of this type")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(db).Error
	})
	if err != nil {
		if ae, ok := apierror.As(err); ok {
			return ae
		}
		return apierror.Database("create user database", err)
	}
	return nil
}

func (s *Store) DeleteUserDatabase(id uuid.UUID) error {
	if err := s.DB.Delete(&model.UserDatabase{}, "id = ?", id).Error; err != nil {
		return apierror.Database("delete user database", err)
	}
	return nil
}

func (s *Store) UpdateUserDatabase(db *model.UserDatabase) error {
	if err := s.DB.Save(db).Error; err != nil {
		return apierror.Database("update user database", err)
	}
	return nil
}
