package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeam_CanCreateFine(t *testing.T) {
	testCases := []struct {
		permission string
		role       string
		want       bool
	}{
		{FinePermissionAdminOnly, RoleAdmin, true},
		{FinePermissionAdminOnly, RoleTreasurer, false},
		{FinePermissionAdminOnly, RoleMember, false},
		{FinePermissionTreasurer, RoleAdmin, true},
		{FinePermissionTreasurer, RoleTreasurer, true},
		{FinePermissionTreasurer, RoleMember, false},
		{FinePermissionEveryone, RoleAdmin, true},
		{FinePermissionEveryone, RoleTreasurer, true},
		{FinePermissionEveryone, RoleMember, true},
		{FinePermissionEveryone, "intern", false},
		{"", RoleAdmin, false},
	}

	for _, tc := range testCases {
		t.Run(tc.permission+"/"+tc.role, func(t *testing.T) {
			team := &Team{FinePermission: tc.permission}
			assert.Equal(t, tc.want, team.CanCreateFine(tc.role))
		})
	}
}

func TestCanManagePot(t *testing.T) {
	assert.True(t, CanManagePot(RoleAdmin))
	assert.True(t, CanManagePot(RoleTreasurer))
	assert.False(t, CanManagePot(RoleMember))
	assert.False(t, CanManagePot("intern"))
}

func TestCanAdminister(t *testing.T) {
	assert.True(t, CanAdminister(RoleAdmin))
	assert.False(t, CanAdminister(RoleTreasurer))
	assert.False(t, CanAdminister(RoleMember))
}

func TestTeam_CommunityVoting(t *testing.T) {
	community := DisputeModeCommunity
	simple := DisputeModeSimple

	testCases := []struct {
		name string
		team Team
		want bool
	}{
		{"community", Team{DisputeEnabled: true, DisputeMode: &community}, true},
		{"simple", Team{DisputeEnabled: true, DisputeMode: &simple}, false},
		{"disabled", Team{DisputeEnabled: false, DisputeMode: &community}, false},
		{"no mode", Team{DisputeEnabled: true}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.team.CommunityVoting())
		})
	}
}

func TestTeam_VotesRequired(t *testing.T) {
	three := 3
	zero := 0

	assert.Equal(t, 3, (&Team{DisputeVotesRequired: &three}).VotesRequired())
	assert.Equal(t, 1, (&Team{DisputeVotesRequired: &zero}).VotesRequired())
	assert.Equal(t, 1, (&Team{}).VotesRequired())
}
