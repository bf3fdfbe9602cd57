package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/middleware"
	"github.com/kassenwart/finepot-api/internal/models"
	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type TeamHandler struct {
	teamService  TeamServiceInterface
	userService  UserServiceInterface
	emailService EmailServiceInterface
	baseURL      string
}

func NewTeamHandler(
	teamService TeamServiceInterface,
	userService UserServiceInterface,
	emailService EmailServiceInterface,
	baseURL string,
) *TeamHandler {
	return &TeamHandler{
		teamService:  teamService,
		userService:  userService,
		emailService: emailService,
		baseURL:      baseURL,
	}
}

func teamResponse(team *models.Team, role string) dto.TeamResponse {
	return dto.TeamResponse{
		ID:                   team.ID,
		Name:                 team.Name,
		FinePermission:       team.FinePermission,
		DisputeEnabled:       team.DisputeEnabled,
		DisputeMode:          team.DisputeMode,
		DisputeVotesRequired: team.DisputeVotesRequired,
		IsClosed:             team.IsClosed,
		Role:                 role,
	}
}

// requireMembership loads the caller's active membership for a team-scoped
// route. Outsiders get a 404 rather than a hint that the team exists.
func requireMembership(c *drift.Context, teams TeamServiceInterface, teamID, userID uuid.UUID) (*models.Membership, bool) {
	member, err := teams.GetMembership(context.Background(), teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return nil, false
	}
	return member, true
}

func (h *TeamHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	team, err := h.teamService.Create(context.Background(), req.Name, userID)
	if err != nil {
		c.InternalServerError("failed to create team")
		return
	}

	_ = c.JSON(201, teamResponse(team, models.RoleAdmin))
}

func (h *TeamHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teams, roles, err := h.teamService.GetUserTeams(context.Background(), userID)
	if err != nil {
		c.InternalServerError("failed to get teams")
		return
	}

	response := make([]dto.TeamResponse, len(teams))
	for i := range teams {
		response[i] = teamResponse(&teams[i], roles[i])
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) Get(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	team, err := h.teamService.GetByID(context.Background(), teamID)
	if err != nil {
		c.NotFound("team not found")
		return
	}

	_ = c.JSON(200, teamResponse(team, member.Role))
}

func (h *TeamHandler) UpdateSettings(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	var req dto.UpdateTeamSettingsRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	team, err := h.teamService.UpdateSettings(context.Background(), teamID, member.Role, services.TeamSettingsInput{
		Name:                 req.Name,
		FinePermission:       req.FinePermission,
		DisputeEnabled:       req.DisputeEnabled,
		DisputeMode:          req.DisputeMode,
		DisputeVotesRequired: req.DisputeVotesRequired,
		IsClosed:             req.IsClosed,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, teamResponse(team, member.Role))
}

func (h *TeamHandler) Delete(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	if err := h.teamService.Delete(context.Background(), teamID, member.Role); err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "team deleted"})
}

func (h *TeamHandler) GetMembers(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	if _, ok := requireMembership(c, h.teamService, teamID, userID); !ok {
		return
	}

	members, err := h.teamService.GetMembers(context.Background(), teamID)
	if err != nil {
		c.InternalServerError("failed to get members")
		return
	}

	response := make([]dto.TeamMemberResponse, len(members))
	for i, m := range members {
		response[i] = dto.TeamMemberResponse{
			ID:     m.ID,
			UserID: m.UserID,
			Role:   m.Role,
			Credit: m.Credit,
		}
		if m.User != nil {
			response[i].User = dto.UserResponse{
				ID:    m.User.ID,
				Email: m.User.Email,
				Name:  m.User.Name,
			}
		}
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) SetMemberRole(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.BadRequest("invalid member id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	var req dto.SetMemberRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Role == "" {
		c.BadRequest("role is required")
		return
	}

	if _, err := h.teamService.SetMemberRole(context.Background(), teamID, memberID, member.Role, req.Role); err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "role updated"})
}

func (h *TeamHandler) RemoveMember(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.BadRequest("invalid member id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(context.Background(), teamID, memberID, userID, member.Role); err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "member removed"})
}

func (h *TeamHandler) LeaveTeam(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(context.Background(), teamID, userID, userID, member.Role); err != nil {
		if errors.Is(err, services.ErrLastAdmin) {
			writeError(c, 409, "INVALID_STATE", errors.New("promote another admin before leaving"))
			return
		}
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "left team"})
}

func (h *TeamHandler) InviteMember(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	var req dto.InviteMemberRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Email == "" {
		c.BadRequest("email is required")
		return
	}

	invitee, err := h.userService.GetByEmail(context.Background(), req.Email)
	if err != nil {
		c.NotFound("user with this email not found")
		return
	}

	invite, err := h.teamService.CreateInvite(context.Background(), teamID, userID, member.Role, invitee.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if h.emailService.IsConfigured() {
		team, _ := h.teamService.GetByID(context.Background(), teamID)
		inviter, _ := h.userService.GetByID(context.Background(), userID)
		if team != nil && inviter != nil {
			inviteURL := fmt.Sprintf("%s/invite/%s", h.baseURL, invite.ID)
			_ = h.emailService.SendTeamInvite(invitee.Email, team.Name, inviter.Name, inviteURL)
		}
	}

	_ = c.JSON(201, inviteResponse(invite))
}

func (h *TeamHandler) GetTeamInvites(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	if _, ok := requireMembership(c, h.teamService, teamID, userID); !ok {
		return
	}

	invites, err := h.teamService.GetTeamPendingInvites(context.Background(), teamID)
	if err != nil {
		c.InternalServerError("failed to get invites")
		return
	}

	response := make([]dto.TeamInviteResponse, len(invites))
	for i := range invites {
		response[i] = inviteResponse(&invites[i])
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) CancelInvite(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	inviteID, err := uuid.Parse(c.Param("inviteId"))
	if err != nil {
		c.BadRequest("invalid invite id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	if !models.CanManagePot(member.Role) {
		writeError(c, 403, "FORBIDDEN", services.ErrForbidden)
		return
	}

	if err := h.teamService.CancelInvite(context.Background(), inviteID, teamID); err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "invite cancelled"})
}

func (h *TeamHandler) GetMyInvites(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	invites, err := h.teamService.GetUserPendingInvites(context.Background(), userID)
	if err != nil {
		c.InternalServerError("failed to get invites")
		return
	}

	response := make([]dto.TeamInviteResponse, len(invites))
	for i := range invites {
		response[i] = inviteResponse(&invites[i])
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) AcceptInvite(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	inviteID, err := uuid.Parse(c.Param("inviteId"))
	if err != nil {
		c.BadRequest("invalid invite id")
		return
	}

	if err := h.teamService.AcceptInvite(context.Background(), inviteID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "invite accepted"})
}

func (h *TeamHandler) DeclineInvite(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	inviteID, err := uuid.Parse(c.Param("inviteId"))
	if err != nil {
		c.BadRequest("invalid invite id")
		return
	}

	if err := h.teamService.DeclineInvite(context.Background(), inviteID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "invite declined"})
}

func inviteResponse(invite *models.TeamInvite) dto.TeamInviteResponse {
	resp := dto.TeamInviteResponse{
		ID:        invite.ID,
		TeamID:    invite.TeamID,
		Status:    invite.Status,
		CreatedAt: invite.CreatedAt.Format(time.RFC3339),
	}
	if invite.Team != nil {
		team := teamResponse(invite.Team, "")
		resp.Team = &team
	}
	if invite.Inviter != nil {
		resp.Inviter = &dto.UserResponse{ID: invite.Inviter.ID, Email: invite.Inviter.Email, Name: invite.Inviter.Name}
	}
	if invite.Invitee != nil {
		resp.Invitee = &dto.UserResponse{ID: invite.Invitee.ID, Email: invite.Invitee.Email, Name: invite.Invitee.Name}
	}
	return resp
}
