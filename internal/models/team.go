package models

import (
	"time"

	"github.com/google/uuid"
)

// Team roles.
const (
	RoleAdmin     = "admin"
	RoleTreasurer = "treasurer"
	RoleMember    = "member"
)

// Who may issue fines, per team configuration.
const (
	FinePermissionAdminOnly = "admin_only"
	FinePermissionTreasurer = "treasurer"
	FinePermissionEveryone  = "everyone"
)

// How disputes are decided when dispute_enabled is set.
const (
	DisputeModeSimple    = "simple"
	DisputeModeCommunity = "community"
)

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

type Team struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	FinePermission       string    `json:"fine_permission"`
	DisputeEnabled       bool      `json:"dispute_enabled"`
	DisputeMode          *string   `json:"dispute_mode,omitempty"`
	DisputeVotesRequired *int      `json:"dispute_votes_required,omitempty"`
	IsClosed             bool      `json:"is_closed"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// CanCreateFine reports whether the given role may issue fines under the
// team's fine_permission setting. Unknown roles get nothing.
func (t *Team) CanCreateFine(role string) bool {
	switch t.FinePermission {
	case FinePermissionAdminOnly:
		return role == RoleAdmin
	case FinePermissionTreasurer:
		return role == RoleAdmin || role == RoleTreasurer
	case FinePermissionEveryone:
		return role == RoleAdmin || role == RoleTreasurer || role == RoleMember
	default:
		return false
	}
}

// CanManagePot reports whether the role may record payments and resolve
// disputes on behalf of the team.
func CanManagePot(role string) bool {
	return role == RoleAdmin || role == RoleTreasurer
}

// CanAdminister reports whether the role may change team settings, member
// roles and hard-delete fines.
func CanAdminister(role string) bool {
	return role == RoleAdmin
}

// CommunityVoting reports whether disputes on this team are decided by vote.
func (t *Team) CommunityVoting() bool {
	return t.DisputeEnabled && t.DisputeMode != nil && *t.DisputeMode == DisputeModeCommunity
}

// VotesRequired returns the configured community-vote threshold. Teams
// without an explicit threshold need a single vote.
func (t *Team) VotesRequired() int {
	if t.DisputeVotesRequired == nil || *t.DisputeVotesRequired < 1 {
		return 1
	}
	return *t.DisputeVotesRequired
}

type Membership struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"team_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	Credit    float64   `json:"credit"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `json:"user,omitempty"`
}

type TeamInvite struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"team_id"`
	InviterID uuid.UUID `json:"inviter_id"`
	InviteeID uuid.UUID `json:"invitee_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Team      *Team     `json:"team,omitempty"`
	Inviter   *User     `json:"inviter,omitempty"`
	Invitee   *User     `json:"invitee,omitempty"`
}
