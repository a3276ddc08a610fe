package models

import "time"

// ActivationKey is a single-use code granting a subscription or a hardware
// reset. Once Used is set the record never changes again.
type ActivationKey struct {
	ID               int64
	Code             string
	SubscriptionType SubscriptionType
	DurationDays     int
	Used             bool
	UsedBy           *int64
	UsedAt           *time.Time
	CreatedAt        time.Time
}
