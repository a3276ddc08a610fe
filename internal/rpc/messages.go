package rpc

import "time"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type Empty struct{}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CheckSubscriptionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	HWID     string `json:"hwid"`
}

type CheckIdentityRequest struct{}

type SubscriptionInfo struct {
	Type      string     `json:"type,omitempty"`
	ExpiresAt *time.Time `json:"expires,omitempty"`
	Active    bool       `json:"active"`
}

type UserInfo struct {
	UID          int64            `json:"uid"`
	Username     string           `json:"username"`
	Email        string           `json:"email,omitempty"`
	HWID         *string          `json:"hwid,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	Subscription SubscriptionInfo `json:"subscription"`
}

// SessionResponse answers Register, Login and CheckSubscription. Token is the
// identity token to present as identity_token metadata on later calls.
type SessionResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type ProfileResponse struct {
	User UserInfo `json:"user"`
}

type ActivateKeyRequest struct {
	Code string `json:"code"`
}

type ActivateKeyResponse struct {
	KeyType      string           `json:"key_type"`
	HWIDReset    bool             `json:"hwid_reset"`
	Subscription SubscriptionInfo `json:"subscription"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type IssueKeyRequest struct {
	SubscriptionType string `json:"subscription_type"`
	DurationDays     int    `json:"duration_days"`
}

type KeyInfo struct {
	ID               int64      `json:"id"`
	Code             string     `json:"code"`
	SubscriptionType string     `json:"subscription_type"`
	DurationDays     int        `json:"duration_days"`
	Used             bool       `json:"used"`
	UsedBy           *int64     `json:"used_by,omitempty"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type IssueKeyResponse struct {
	Key KeyInfo `json:"key"`
}

type ListKeysRequest struct{}

type ListKeysResponse struct {
	Keys []KeyInfo `json:"keys"`
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []UserInfo `json:"users"`
}

// UserRequest addresses a single user by id.
type UserRequest struct {
	UID int64 `json:"uid"`
}

type WipeAllRequest struct {
	Secret string `json:"secret"`
}

type WipeAllResponse struct {
	UsersDeleted int64  `json:"users_deleted"`
	KeysDeleted  int64  `json:"keys_deleted"`
	ArchiveKey   string `json:"archive_key,omitempty"`
}
