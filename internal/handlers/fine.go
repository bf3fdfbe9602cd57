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

type FineHandler struct {
	teamService   TeamServiceInterface
	ledgerService LedgerServiceInterface
	hub           HubInterface
}

func NewFineHandler(teamService TeamServiceInterface, ledgerService LedgerServiceInterface, hub HubInterface) *FineHandler {
	return &FineHandler{
		teamService:   teamService,
		ledgerService: ledgerService,
		hub:           hub,
	}
}

func fineResponse(fine *models.Fine) dto.FineResponse {
	return dto.FineResponse{
		ID:          fine.ID,
		TeamID:      fine.TeamID,
		OffenderID:  fine.OffenderID,
		IssuerID:    fine.IssuerID,
		RuleID:      fine.RuleID,
		Label:       fine.Label,
		Amount:      fine.Amount,
		AmountPaid:  fine.AmountPaid,
		Outstanding: fine.Outstanding(),
		Status:      fine.Status,
		Note:        fine.Note,
		CreatedAt:   fine.CreatedAt.Format(time.RFC3339),
	}
}

func (h *FineHandler) Create(c *drift.Context) {
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

	var req dto.CreateFineRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.OffenderID == nil && len(req.OffenderIDs) == 0 {
		c.BadRequest("offender_id or offender_ids is required")
		return
	}
	if req.OffenderID != nil && len(req.OffenderIDs) > 0 {
		c.BadRequest("offender_id and offender_ids are mutually exclusive")
		return
	}

	in := services.CreateFineInput{
		TeamID:     teamID,
		IssuerID:   userID,
		IssuerRole: member.Role,
		RuleID:     req.RuleID,
		Label:      req.Label,
		Amount:     req.Amount,
		Note:       req.Note,
	}

	if req.OffenderID != nil {
		in.OffenderID = *req.OffenderID
		fine, err := h.ledgerService.CreateFine(context.Background(), in)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		h.hub.BroadcastFineCreated(teamID, fine.ID, fine.OffenderID, fine.IssuerID, fine.Label, fine.Amount)
		_ = c.JSON(201, fineResponse(fine))
		return
	}

	created, failed := h.ledgerService.CreateFines(context.Background(), in, req.OffenderIDs)

	response := dto.CreateFinesResponse{
		Created: make([]dto.FineResponse, 0, len(created)),
		Failed:  make([]dto.BatchFineFailure, 0, len(failed)),
	}
	fineIDs := make([]uuid.UUID, 0, len(created))
	for i := range created {
		response.Created = append(response.Created, fineResponse(&created[i]))
		fineIDs = append(fineIDs, created[i].ID)
	}
	for offenderID, failErr := range failed {
		response.Failed = append(response.Failed, dto.BatchFineFailure{
			OffenderID: offenderID,
			Error:      failErr.Error(),
		})
	}

	if len(created) > 0 {
		h.hub.BroadcastFinesCreated(teamID, userID, fineIDs)
	}

	_ = c.JSON(201, response)
}

func (h *FineHandler) List(c *drift.Context) {
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

	var filter services.FineFilter
	if raw := c.QueryParam("offender_id"); raw != "" {
		offenderID, err := uuid.Parse(raw)
		if err != nil {
			c.BadRequest("invalid offender id")
			return
		}
		filter.OffenderID = &offenderID
	}
	filter.Status = c.QueryParam("status")

	fines, err := h.ledgerService.ListFines(context.Background(), teamID, filter)
	if err != nil {
		c.InternalServerError("failed to list fines")
		return
	}

	response := make([]dto.FineResponse, len(fines))
	for i := range fines {
		response[i] = fineResponse(&fines[i])
	}

	_ = c.JSON(200, response)
}

func (h *FineHandler) Get(c *drift.Context) {
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

	fine, err := h.ledgerService.GetFine(context.Background(), teamID, fineID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, fineResponse(fine))
}

func (h *FineHandler) Delete(c *drift.Context) {
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

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	if err := h.ledgerService.DeleteFine(context.Background(), teamID, fineID, userID, member.Role); err != nil {
		respondServiceError(c, err)
		return
	}

	h.hub.BroadcastFineDeleted(teamID, fineID, userID)
	_ = c.JSON(200, map[string]string{"message": "fine deleted"})
}

func (h *FineHandler) Balances(c *drift.Context) {
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

	balances, err := h.ledgerService.MemberBalances(context.Background(), teamID)
	if err != nil {
		c.InternalServerError("failed to compute balances")
		return
	}

	response := make([]dto.MemberBalanceResponse, len(balances))
	for i, b := range balances {
		response[i] = dto.MemberBalanceResponse{
			UserID:      b.UserID,
			Name:        b.Name,
			Role:        b.Role,
			TotalFined:  b.TotalFined,
			TotalPaid:   b.TotalPaid,
			Outstanding: b.Outstanding,
			Credit:      b.Credit,
		}
	}

	_ = c.JSON(200, response)
}
