package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/middleware"
	"github.com/kassenwart/finepot-api/internal/models"
	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type DisputeHandler struct {
	teamService    TeamServiceInterface
	disputeService DisputeServiceInterface
	hub            HubInterface
}

func NewDisputeHandler(teamService TeamServiceInterface, disputeService DisputeServiceInterface, hub HubInterface) *DisputeHandler {
	return &DisputeHandler{
		teamService:    teamService,
		disputeService: disputeService,
		hub:            hub,
	}
}

func disputeResponse(dispute *models.FineDispute) dto.DisputeResponse {
	return dto.DisputeResponse{
		ID:             dispute.ID,
		FineID:         dispute.FineID,
		DisputerID:     dispute.DisputerID,
		Reason:         dispute.Reason,
		Status:         dispute.Status,
		VotesCount:     dispute.VotesCount,
		VotesRequired:  dispute.VotesRequired,
		ResolvedBy:     dispute.ResolvedBy,
		ResolutionNote: dispute.ResolutionNote,
		CreatedAt:      dispute.CreatedAt.Format(time.RFC3339),
	}
}

func (h *DisputeHandler) Create(c *drift.Context) {
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

	fineID, err := uuid.Parse(c.Param("fineId"))
	if err != nil {
		c.BadRequest("invalid fine id")
		return
	}

	if _, ok := requireMembership(c, h.teamService, teamID, userID); !ok {
		return
	}

	var req dto.CreateDisputeRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Reason == "" {
		c.BadRequest("reason is required")
		return
	}

	dispute, err := h.disputeService.Create(context.Background(), services.CreateDisputeInput{
		TeamID:     teamID,
		FineID:     fineID,
		DisputerID: userID,
		Reason:     req.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.hub.BroadcastDisputeOpened(teamID, dispute.ID, dispute.FineID, dispute.DisputerID)
	_ = c.JSON(201, disputeResponse(dispute))
}

func (h *DisputeHandler) Vote(c *drift.Context) {
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

	disputeID, err := uuid.Parse(c.Param("disputeId"))
	if err != nil {
		c.BadRequest("invalid dispute id")
		return
	}

	if _, ok := requireMembership(c, h.teamService, teamID, userID); !ok {
		return
	}

	var req dto.VoteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	dispute, err := h.disputeService.Vote(context.Background(), services.VoteInput{
		TeamID:    teamID,
		DisputeID: disputeID,
		VoterID:   userID,
		Approve:   req.Approve,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.hub.BroadcastDisputeVoteCast(teamID, dispute.ID, dispute.VotesCount, dispute.VotesRequired, dispute.Status)
	if dispute.Status == models.DisputeStatusAutoApproved {
		h.hub.BroadcastDisputeResolved(teamID, dispute.ID, dispute.FineID, dispute.Status)
	}

	_ = c.JSON(200, disputeResponse(dispute))
}

func (h *DisputeHandler) Resolve(c *drift.Context) {
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

	disputeID, err := uuid.Parse(c.Param("disputeId"))
	if err != nil {
		c.BadRequest("invalid dispute id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	dispute, err := h.disputeService.Resolve(context.Background(), services.ResolveInput{
		TeamID:       teamID,
		DisputeID:    disputeID,
		ResolverID:   userID,
		ResolverRole: member.Role,
		Approve:      req.Approve,
		Note:         req.Note,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.hub.BroadcastDisputeResolved(teamID, dispute.ID, dispute.FineID, dispute.Status)
	_ = c.JSON(200, disputeResponse(dispute))
}

func (h *DisputeHandler) Get(c *drift.Context) {
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

	disputeID, err := uuid.Parse(c.Param("disputeId"))
	if err != nil {
		c.BadRequest("invalid dispute id")
		return
	}

	if _, ok := requireMembership(c, h.teamService, teamID, userID); !ok {
		return
	}

	dispute, err := h.disputeService.GetByID(context.Background(), teamID, disputeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, disputeResponse(dispute))
}

func (h *DisputeHandler) List(c *drift.Context) {
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

	disputes, err := h.disputeService.ListByTeam(context.Background(), teamID, c.QueryParam("status"))
	if err != nil {
		c.InternalServerError("failed to list disputes")
		return
	}

	response := make([]dto.DisputeResponse, len(disputes))
	for i := range disputes {
		response[i] = disputeResponse(&disputes[i])
	}

	_ = c.JSON(200, response)
}

func (h *DisputeHandler) ListVotes(c *drift.Context) {
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

	disputeID, err := uuid.Parse(c.Param("disputeId"))
	if err != nil {
		c.BadRequest("invalid dispute id")
		return
	}

	if _, ok := requireMembership(c, h.teamService, teamID, userID); !ok {
		return
	}

	votes, err := h.disputeService.ListVotes(context.Background(), teamID, disputeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response := make([]dto.DisputeVoteResponse, len(votes))
	for i, v := range votes {
		response[i] = dto.DisputeVoteResponse{
			ID:        v.ID,
			DisputeID: v.DisputeID,
			VoterID:   v.VoterID,
			Approve:   v.Vote,
			CreatedAt: v.CreatedAt.Format(time.RFC3339),
		}
	}

	_ = c.JSON(200, response)
}
