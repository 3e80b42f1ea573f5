package identity

// Roles are ordered by seniority: a smaller number outranks a larger one.
const (
	RoleDeveloper  = 1
	RoleEngineer   = 2
	RoleSupervisor = 3
	RoleWorker     = 4
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

func ValidRole(role int) bool {
	return role >= RoleDeveloper && role <= RoleWorker
}

// RoleAtLeast reports whether role is at least as senior as limit.
func RoleAtLeast(role, limit int) bool {
	return ValidRole(role) && role <= limit
}

func RoleName(role int) string {
	switch role {
	case RoleDeveloper:
		return "developer"
	case RoleEngineer:
		return "engineer"
	case RoleSupervisor:
		return "supervisor"
	case RoleWorker:
		return "worker"
	default:
		return "unknown"
	}
}
