package access

const (
	RoleAdmin      = "admin"
	RoleOrgAdmin   = "org_admin"
	RoleDoctor     = "doctor"
	RolePatient    = "patient"
	RoleResearcher = "researcher"
	RolePharmacist = "pharmacist"
	RoleLaboratory = "laboratory"
	RoleHR         = "hr"
	RoleFinance    = "finance"
	RolePurchasing = "purchasing"
	RoleShipping   = "shipping"
	RoleLegal      = "legal"
	RoleAffiliate  = "affiliate"
)

var roles = map[string]bool{
	RoleAdmin: true, RoleOrgAdmin: true, RoleDoctor: true, RolePatient: true,
	RoleResearcher: true, RolePharmacist: true, RoleLaboratory: true, RoleHR: true,
	RoleFinance: true, RolePurchasing: true, RoleShipping: true, RoleLegal: true,
	RoleAffiliate: true,
}

func ValidRole(role string) bool {
	return roles[role]
}

// IsStaff reports whether the role signs in through the staff login.
// Patients and affiliates use the patient login.
func IsStaff(role string) bool {
	return ValidRole(role) && role != RolePatient && role != RoleAffiliate
}

// IsManager reports whether the role administers an organization.
func IsManager(role string) bool {
	return role == RoleAdmin || role == RoleOrgAdmin
}

// DashboardPath is where the web client lands after login.
func DashboardPath(role string) string {
	switch role {
	case RoleAdmin:
		return "/dashboard"
	case RoleOrgAdmin:
		return "/organization/dashboard"
	case "":
		return "/"
	default:
		return "/" + role + "/dashboard"
	}
}
