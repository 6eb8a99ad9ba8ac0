package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
)

func (s *Store) CreatePasswordResetToken(t *model.PasswordResetToken) error {
	if err := s.DB.Create(t).Error; err != nil {
		return apierror.Database("create password reset token", err)
	}
	return nil
}

// ConsumePasswordResetToken returns the token row if it is unused and
// unexpired, atomically marking it used so it can never be replayed.
func (s *Store) ConsumePasswordResetToken(token string) (*model.PasswordResetToken, error) {
	var row *model.PasswordResetToken
	err := s.DB.Transaction(func(tx *txDB) error {
		var t model.PasswordResetToken
		err := tx.Where("token = ?", token).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.BadRequest("invalid or expired token")
		}
		if err != nil {
			return err
		}
		if t.Used || time.Now().After(t.ExpiresAt) {
			return apierror.BadRequest("invalid or expired token")
		}
		if err := tx.Model(&t).Update("used", true).Error; err != nil {
			return err
		}
		row = &t
		return nil
	})
	if err != nil {
		if ae, ok := apierror.As(err); ok {
			return nil, ae
		}
		return nil, apierror.Database("consume password reset token", err)
	}
	return row, nil
}

func (s *Store) CreateInviteToken(t *model.InviteToken) error {
	if err := s.DB.Create(t).Error; err != nil {
		return apierror.Database("create invite token", err)
	}
	return nil
}

// ConsumeInviteToken mirrors ConsumePasswordResetToken's atomic
// validate-then-mark-used semantics for the invite-acceptance flow
// (SPEC_FULL.md §4.C4).
func (s *Store) ConsumeInviteToken(token string) (*model.InviteToken, error) {
	var row *model.InviteToken
	err := s.DB.Transaction(func(tx *txDB) error {
		var t model.InviteToken
		err := tx.Where("token = ?", token).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.BadRequest("invalid or expired invite")
		}
		if err != nil {
			return err
		}
		if t.Used || time.Now().After(t.ExpiresAt) {
			return apierror.BadRequest("invalid or expired invite")
		}
		if err := tx.Model(&t).Update("used", true).Error; err != nil {
			return err
		}
		row = &t
		return nil
	})
	if err != nil {
		if ae, ok := apierror.As(err); ok {
			return nil, ae
		}
		return nil, apierror.Database("consume invite token", err)
	}
	return row, nil
}
