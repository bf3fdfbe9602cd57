package dto

import "github.com/google/uuid"

type CreateTeamRequest struct {
	Name string `json:"name"`
}

type UpdateTeamSettingsRequest struct {
	Name                 *string `json:"name,omitempty"`
	FinePermission       *string `json:"fine_permission,omitempty"`
	DisputeEnabled       *bool   `json:"dispute_enabled,omitempty"`
	DisputeMode          *string `json:"dispute_mode,omitempty"`
	DisputeVotesRequired *int    `json:"dispute_votes_required,omitempty"`
	IsClosed             *bool   `json:"is_closed,omitempty"`
}

type SetMemberRoleRequest struct {
	Role string `json:"role"`
}

type InviteMemberRequest struct {
	Email string `json:"email"`
}

type TeamResponse struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	FinePermission       string    `json:"fine_permission"`
	DisputeEnabled       bool      `json:"dispute_enabled"`
	DisputeMode          *string   `json:"dispute_mode,omitempty"`
	DisputeVotesRequired *int      `json:"dispute_votes_required,omitempty"`
	IsClosed             bool      `json:"is_closed"`
	Role                 string    `json:"role,omitempty"`
}

type TeamMemberResponse struct {
	ID     uuid.UUID    `json:"id"`
	UserID uuid.UUID    `json:"user_id"`
	Role   string       `json:"role"`
	Credit float64      `json:"credit"`
	User   UserResponse `json:"user"`
}

type TeamInviteResponse struct {
	ID        uuid.UUID     `json:"id"`
	TeamID    uuid.UUID     `json:"team_id"`
	Status    string        `json:"status"`
	CreatedAt string        `json:"created_at"`
	Team      *TeamResponse `json:"team,omitempty"`
	Inviter   *UserResponse `json:"inviter,omitempty"`
	Invitee   *UserResponse `json:"invitee,omitempty"`
}

type MemberBalanceResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	TotalFined  float64   `json:"total_fined"`
	TotalPaid   float64   `json:"total_paid"`
	Outstanding float64   `json:"outstanding"`
	Credit      float64   `json:"credit"`
}
