package authroles

import (
	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
)

// StaticRoleMapper maps directory groups to application roles by simple
// string membership. Admin wins over operator when a user carries both
// groups; any other authenticated user gets read-only viewer access.
type StaticRoleMapper struct {
	AdminGroup    string
	OperatorGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		if m.AdminGroup != "" && g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	for _, g := range groups {
		if m.OperatorGroup != "" && g == m.OperatorGroup {
			return domainauth.RoleOperator
		}
	}
	return domainauth.RoleViewer
}
