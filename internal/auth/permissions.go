package auth

import "reviewflow/internal/models"

// Разрешения
const (
	PermFeedbackReadAll   = "feedback:read:all"
	PermFeedbackReadOwn   = "feedback:read:own"
	PermFeedbackDeleteAll = "feedback:delete:all"
	PermFeedbackDeleteOwn = "feedback:delete:own"
	PermSellersWrite      = "sellers:write"
	PermClientsWrite      = "clients:write"
	PermProfileWrite      = "profile:write"
	PermImpersonateSeller = "impersonate:seller"
	PermImpersonateClient = "impersonate:client"
)

var Permissions = map[models.ActorRole][]string{
	models.ActorRoleAdmin: {
		PermFeedbackReadAll,
		PermFeedbackDeleteAll,
		PermSellersWrite,
		PermImpersonateSeller,
	},
	models.ActorRoleSeller: {
		PermFeedbackReadOwn,
		PermFeedbackDeleteOwn,
		PermClientsWrite,
		PermProfileWrite,
		PermImpersonateClient,
	},
	models.ActorRoleClient: {
		PermFeedbackReadOwn,
		PermFeedbackDeleteOwn,
		PermProfileWrite,
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role models.ActorRole, permission string) bool {
	for _, p := range Permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

func CanPerformAction(actor Actor, permission string) bool {
	return HasPermission(actor.Role, permission)
}
