package models

import "time"

// Entitlement is the subscription a user currently holds. A zero Type means
// the user never had one.
type Entitlement struct {
	Type      SubscriptionType
	ExpiresAt *time.Time
}

type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash []byte
	HWID         *string
	Entitlement  Entitlement
	CreatedAt    time.Time
}

// HardwareBound reports whether the account is tied to a machine.
func (u *User) HardwareBound() bool {
	return u.HWID != nil && *u.HWID != ""
}
