package models

// Permission constants
const (
	// Offer permissions
	PermissionOfferRead  = "offer:read"
	PermissionOfferWrite = "offer:write"

	// Swap request and transaction permissions
	PermissionSwapRead  = "swap:read"
	PermissionSwapWrite = "swap:write"

	// Feedback permissions
	PermissionFeedbackWrite = "feedback:write"

	// Moderation permissions
	PermissionModerateOffers   = "moderation:offers"
	PermissionModerateDisputes = "moderation:disputes"

	// Admin permissions
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"
)

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	member := []string{
		PermissionOfferRead,
		PermissionOfferWrite,
		PermissionSwapRead,
		PermissionSwapWrite,
		PermissionFeedbackWrite,
	}
	switch role {
	case RoleAdmin:
		return append(member,
			PermissionModerateOffers,
			PermissionModerateDisputes,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		)
	case RoleModerator:
		return append(member,
			PermissionModerateOffers,
			PermissionModerateDisputes,
		)
	case RoleUser:
		return member
	default:
		return []string{}
	}
}
