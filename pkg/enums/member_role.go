package enums

import "fmt"

// MemberRole is the platform-level permissions role of a user.
type MemberRole string

const (
	MemberRoleVendor MemberRole = "vendor"
	MemberRoleAgent  MemberRole = "agent"
	MemberRoleAdmin  MemberRole = "admin"
)

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	switch m {
	case MemberRoleVendor, MemberRoleAgent, MemberRoleAdmin:
		return true
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	role := MemberRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid member role %q", value)
	}
	return role, nil
}
