package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleMember, RoleMember, true},
		{RoleMember, RoleModerator, false},
		{RoleModerator, RoleMember, true},
		{RoleModerator, RoleAdmin, false},
		{RoleAdmin, RoleModerator, true},
		{RoleAdmin, RoleAdmin, true},
		{Role("owner"), RoleMember, false},
		{RoleAdmin, Role("root"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.min), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.min))
		})
	}
}

func TestRoleCompare(t *testing.T) {
	assert.Equal(t, -1, RoleMember.Compare(RoleAdmin))
	assert.Equal(t, 1, RoleAdmin.Compare(RoleModerator))
	assert.Equal(t, 0, RoleModerator.Compare(RoleModerator))
	assert.Equal(t, -1, Role("").Compare(RoleMember))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("moderator")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, r)

	_, err = ParseRole("Admin")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPrincipalTeamRole(t *testing.T) {
	p := &Principal{
		ID:    "u1",
		Role:  RoleMember,
		Teams: []TeamMembership{{TeamID: "t1", Role: RoleAdmin}},
	}

	role, ok := p.TeamRole("t1")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	_, ok = p.TeamRole("t2")
	assert.False(t, ok)

	_, ok = p.TeamRole("")
	assert.False(t, ok)

	var nilPrincipal *Principal
	_, ok = nilPrincipal.TeamRole("t1")
	assert.False(t, ok)
	assert.False(t, nilPrincipal.IsAdmin())
}
