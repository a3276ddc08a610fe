package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keygate/internal/common"
)

// SubscriptionType identifies a plan an activation key grants, or the
// hardware reset sentinel. The set is closed: use ParseSubscriptionType to
// turn external input into one.
type SubscriptionType string

const (
	SubscriptionTrial     SubscriptionType = "trial"
	SubscriptionWeekly    SubscriptionType = "weekly"
	SubscriptionMonthly   SubscriptionType = "monthly"
	SubscriptionQuarterly SubscriptionType = "quarterly"
	SubscriptionYearly    SubscriptionType = "yearly"
	SubscriptionLifetime  SubscriptionType = "lifetime"
	SubscriptionHWIDReset SubscriptionType = "hwid_reset"
)

// Kind groups subscription types by how redeeming them behaves.
type Kind int

const (
	KindUnknown Kind = iota
	KindMetered
	KindLifetime
	KindHardwareReset
)

var subscriptionKinds = map[SubscriptionType]Kind{
	SubscriptionTrial:     KindMetered,
	SubscriptionWeekly:    KindMetered,
	SubscriptionMonthly:   KindMetered,
	SubscriptionQuarterly: KindMetered,
	SubscriptionYearly:    KindMetered,
	SubscriptionLifetime:  KindLifetime,
	SubscriptionHWIDReset: KindHardwareReset,
}

// SubscriptionTypes lists every known type in a stable order.
func SubscriptionTypes() []SubscriptionType {
	return []SubscriptionType{
		SubscriptionTrial,
		SubscriptionWeekly,
		SubscriptionMonthly,
		SubscriptionQuarterly,
		SubscriptionYearly,
		SubscriptionLifetime,
		SubscriptionHWIDReset,
	}
}

// ParseSubscriptionType accepts a case-insensitive plan name.
func ParseSubscriptionType(s string) (SubscriptionType, error) {
	t := SubscriptionType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := subscriptionKinds[t]; !ok {
		return "", fmt.Errorf("%w: unknown subscription type %q", common.ErrInvalidArgument, s)
	}
	return t, nil
}

func (t SubscriptionType) Kind() Kind {
	return subscriptionKinds[t]
}

func (t SubscriptionType) Valid() bool {
	return t.Kind() != KindUnknown
}

// Grantable reports whether the type can be held as a user's entitlement.
func (t SubscriptionType) Grantable() bool {
	k := t.Kind()
	return k == KindMetered || k == KindLifetime
}

func (t SubscriptionType) String() string {
	return string(t)
}
