package models

// ActorRole - роль аутентифицированного пользователя
type ActorRole string

const (
	ActorRoleAdmin  ActorRole = "admin"
	ActorRoleSeller ActorRole = "seller"
	ActorRoleClient ActorRole = "client"
)

func (r ActorRole) Valid() bool {
	switch r {
	case ActorRoleAdmin, ActorRoleSeller, ActorRoleClient:
		return true
	}
	return false
}

// TenantKind identifies which inbox a feedback record belongs to.
type TenantKind string

const (
	TenantKindClient   TenantKind = "client"
	TenantKindSeller   TenantKind = "seller"
	TenantKindPlatform TenantKind = "platform"
)

// PlatformTenantKey owns feedback from the legacy smart-URL form.
const PlatformTenantKey = "platform"

// DefaultQRColor is shown when a tenant never picked a colour.
const DefaultQRColor = "#000000"

// InboxTopic names the live channel of one tenant inbox.
func InboxTopic(kind TenantKind, key string) string {
	if kind == TenantKindPlatform {
		return string(TenantKindPlatform)
	}
	return string(kind) + ":" + key
}
