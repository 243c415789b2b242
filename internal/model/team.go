package model

import (
	"strings"
	"time"
)

// TeamRole is a member's role on an innovation's roster.
type TeamRole string

const (
	TeamRoleMember   TeamRole = "member"
	TeamRoleLeader   TeamRole = "leader"
	TeamRoleCoLeader TeamRole = "coleader"
)

// ParseTeamRole maps free-text role input onto a TeamRole. Anything it does
// not recognise becomes TeamRoleMember rather than an error.
func ParseTeamRole(s string) TeamRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leader", "ketua":
		return TeamRoleLeader
	case "coleader", "co-leader", "co leader", "penolong ketua", "timbalan ketua":
		return TeamRoleCoLeader
	default:
		return TeamRoleMember
	}
}

// Leads reports whether the role carries roster-management rights.
func (r TeamRole) Leads() bool {
	return r == TeamRoleLeader || r == TeamRoleCoLeader
}

// TeamMember is one roster entry. (InnovationID, MemberEmail) is unique.
type TeamMember struct {
	ID           string    `json:"id"`
	InnovationID string    `json:"innovationId"`
	MemberEmail  string    `json:"memberEmail"`
	MemberName   string    `json:"memberName"`
	MemberDept   string    `json:"memberDept"`
	Role         TeamRole  `json:"role"`
	AddedByEmail string    `json:"addedByEmail"`
	AddedAt      time.Time `json:"addedAt"`
}
