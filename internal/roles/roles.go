package roles

// Role constants defining the hierarchy
const (
	Farmer     = "farmer"     // Owns fields and readings, sees only their own
	Agronomist = "agronomist" // Same data scope as farmer; may manage fields
	Admin      = "admin"      // Full system administrator, sees every row
)

// roleHierarchy defines the role hierarchy levels (higher number = more privileges)
var roleHierarchy = map[string]int{
	Farmer:     1,
	Agronomist: 2,
	Admin:      3,
}

// ValidRoles returns a slice of all valid roles
func ValidRoles() []string {
	return []string{Farmer, Agronomist, Admin}
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	_, exists := roleHierarchy[role]
	return exists
}

// GetRoleLevel returns the hierarchy level for a role
func GetRoleLevel(role string) int {
	if level, exists := roleHierarchy[role]; exists {
		return level
	}
	return -1 // Invalid role
}

// HasPermission checks if a role has at least the required permission level
func HasPermission(userRole, requiredRole string) bool {
	userLevel := GetRoleLevel(userRole)
	requiredLevel := GetRoleLevel(requiredRole)

	if userLevel == -1 || requiredLevel == -1 {
		return false
	}

	return userLevel >= requiredLevel
}

// CanAssignRole checks if a user with fromRole can assign toRole to another user
func CanAssignRole(fromRole, toRole string) bool {
	fromLevel := GetRoleLevel(fromRole)
	toLevel := GetRoleLevel(toRole)

	if fromLevel == -1 || toLevel == -1 {
		return false
	}

	// Can only assign roles up to your own level
	return fromLevel >= toLevel
}
