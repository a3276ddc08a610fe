// Package entitlement derives subscription status and applies activation
// keys to a user's entitlement. It is pure: persistence and locking belong
// to the callers in the services package.
package entitlement

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/timex"
)

// LifetimeYears is how far in the future a lifetime entitlement's expiry is
// stored. Status never consults it: lifetime is active unconditionally.
const LifetimeYears = 1337

// Status is the derived view of an entitlement at a point in time.
type Status struct {
	Active    bool
	Type      models.SubscriptionType
	ExpiresAt *time.Time
}

// ComputeStatus reports whether e is active at now.
func ComputeStatus(e models.Entitlement, now time.Time) Status {
	s := Status{Type: e.Type, ExpiresAt: e.ExpiresAt}

	switch {
	case e.Type == "":
		s.Active = false
	case e.Type == models.SubscriptionLifetime:
		s.Active = true
	default:
		s.Active = e.ExpiresAt != nil && e.ExpiresAt.After(now)
	}
	return s
}

// Grant is the outcome of redeeming a key.
type Grant struct {
	Entitlement   models.Entitlement
	ResetHardware bool
}

// Engine applies keys. Calendar-day arithmetic for metered plans happens in
// its location.
type Engine struct {
	loc *time.Location
}

func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Redeem computes the effect of applying key to current at now. It does not
// mutate anything. A used key yields common.ErrKeyAlreadyUsed.
func (e *Engine) Redeem(current models.Entitlement, key *models.ActivationKey, now time.Time) (Grant, error) {
	if key == nil {
		return Grant{}, common.ErrKeyNotFound
	}
	if key.Used {
		return Grant{}, common.ErrKeyAlreadyUsed
	}

	switch key.SubscriptionType.Kind() {
	case models.KindHardwareReset:
		return Grant{Entitlement: current, ResetHardware: true}, nil

	case models.KindLifetime:
		expires := timex.AddYears(now, LifetimeYears, e.loc)
		return Grant{Entitlement: models.Entitlement{
			Type:      models.SubscriptionLifetime,
			ExpiresAt: &expires,
		}}, nil

	case models.KindMetered:
		if key.DurationDays < 0 {
			return Grant{}, fmt.Errorf("%w: negative duration on key %d", common.ErrInvalidArgument, key.ID)
		}
		base := now
		if current.ExpiresAt != nil && current.ExpiresAt.After(now) {
			base = *current.ExpiresAt
		}
		expires := timex.AddDays(base, key.DurationDays, e.loc)
		return Grant{Entitlement: models.Entitlement{
			Type:      key.SubscriptionType,
			ExpiresAt: &expires,
		}}, nil

	default:
		return Grant{}, fmt.Errorf("%w: unknown subscription type %q", common.ErrInvalidArgument, key.SubscriptionType)
	}
}
