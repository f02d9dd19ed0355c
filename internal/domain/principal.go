package domain

// TeamMembership carries a role that is only valid for the team's resources.
type TeamMembership struct {
	TeamID string
	Role   Role
}

type Principal struct {
	ID       string
	Username string
	Role     Role
	Teams    []TeamMembership
}

func (p *Principal) TeamRole(teamID string) (Role, bool) {
	if p == nil || teamID == "" {
		return "", false
	}
	for _, m := range p.Teams {
		if m.TeamID == teamID {
			return m.Role, true
		}
	}
	return "", false
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role.AtLeast(RoleAdmin)
}

type Team struct {
	ID   string
	Name string
}
