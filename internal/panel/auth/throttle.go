package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
)

// AttemptCounter is the subset of internal/panel/store.Store the throttle
// needs, kept as an interface so tests can fake it.
type AttemptCounter interface {
	CountTotpAttemptsSince(userID uuid.UUID, since time.Time) (int64, error)
}

// Throttle rate-limits 2FA verification attempts, grounded on
// original_source/api/src/handlers/two_factor.rs which limits 5 attempts
// per 5-minute sliding window per user — silent-but-present original
// behavior carried forward per SPEC_FULL.md §3.
type Throttle struct {
	Store  AttemptCounter
	Limit  int
	Window time.Duration
}

func NewThrottle(store AttemptCounter) *Throttle {
	return &Throttle{Store: store, Limit: 5, Window: 5 * time.Minute}
}

// Allow returns apierror.Forbidden if the user has exceeded the attempt
// limit within the window, otherwise nil.
func (t *Throttle) Allow(userID uuid.UUID) error {
	count, err := t.Store.CountTotpAttemptsSince(userID, time.Now().Add(-t.Window))
	if err != nil {
		return err
	}
	if count >= int64(t.Limit) {
		return apierror.Forbidden("too many two-factor attempts, try again later")
	}
	return nil
}
