package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

// EnableTotp implements spec.md §5's transactional guarantee ("enabling the
// user + deleting old codes + inserting new codes is a transaction").
func (s *Store) EnableTotp(userID uuid.UUID, secret string, backupCodeHashes []string) error {
	return s.DB.Transaction(func(tx *txDB) error {
		now := time.Now()
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"totp_secret":      secret,
			"totp_enabled":     true,
			"totp_verified_at": now,
		}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.TotpBackupCode{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		for _, hash := range backupCodeHashes {
			code := model.TotpBackupCode{ID: idgen.New(), UserID: userID, CodeHash: hash}
			if err := tx.Create(&code).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DisableTotp clears the secret, verified-at, flag, and all backup codes
// (spec.md §4.C4 "Disable").
func (s *Store) DisableTotp(userID uuid.UUID) error {
	return s.DB.Transaction(func(tx *txDB) error {
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"totp_secret":      nil,
			"totp_enabled":     false,
			"totp_verified_at": nil,
		}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.TotpBackupCode{}, "user_id = ?", userID).Error
	})
}

func (s *Store) ListBackupCodes(userID uuid.UUID) ([]model.TotpBackupCode, error) {
	var codes []model.TotpBackupCode
	if err := s.DB.Where("user_id = ? AND used = false", userID).Find(&codes).Error; err != nil {
		return nil, apierror.Database("list backup codes", err)
	}
	return codes, nil
}

// ConsumeBackupCode marks a code used inside a conditional update guarded
// by a WHERE used = false clause, so two concurrent verifies of the same
// code can never both succeed (spec.md §8 invariant 10).
func (s *Store) ConsumeBackupCode(id uuid.UUID) (bool, error) {
	res := s.DB.Model(&model.TotpBackupCode{}).
		Where("id = ? AND used = false", id).
		Updates(map[string]interface{}{"used": true, "used_at": time.Now()})
	if res.Error != nil {
		return false, apierror.Database("consume backup code", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) RecordTotpAttempt(a *model.TotpAttempt) error {
	if err := s.DB.Create(a).Error; err != nil {
		return apierror.Database("record totp attempt", err)
	}
	return nil
}

// CountTotpAttemptsSince supports internal/panel/auth.Throttle's sliding
// window rate limit, grounded on
// original_source/api/src/handlers/two_factor.rs.
func (s *Store) CountTotpAttemptsSince(userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := s.DB.Model(&model.TotpAttempt{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, apierror.Database("count totp attempts", err)
	}
	return count, nil
}
