package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/middleware"
	"github.com/kassenwart/finepot-api/internal/models"
	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type RuleHandler struct {
	teamService TeamServiceInterface
	ruleService RuleServiceInterface
}

func NewRuleHandler(teamService TeamServiceInterface, ruleService RuleServiceInterface) *RuleHandler {
	return &RuleHandler{
		teamService: teamService,
		ruleService: ruleService,
	}
}

func ruleResponse(rule *models.FineRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:       rule.ID,
		TeamID:   rule.TeamID,
		Label:    rule.Label,
		Amount:   rule.Amount,
		Category: rule.Category,
		IsActive: rule.IsActive,
	}
}

func (h *RuleHandler) Create(c *drift.Context) {
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

	var req dto.CreateRuleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	rule, err := h.ruleService.Create(context.Background(), teamID, member.Role, req.Label, req.Amount, req.Category)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(201, ruleResponse(rule))
}

func (h *RuleHandler) List(c *drift.Context) {
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

	includeInactive := c.QueryParam("include_inactive") == "true"

	rules, err := h.ruleService.List(context.Background(), teamID, includeInactive)
	if err != nil {
		c.InternalServerError("failed to list rules")
		return
	}

	response := make([]dto.RuleResponse, len(rules))
	for i := range rules {
		response[i] = ruleResponse(&rules[i])
	}

	_ = c.JSON(200, response)
}

func (h *RuleHandler) Get(c *drift.Context) {
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

	ruleID, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		c.BadRequest("invalid rule id")
		return
	}

	if _, ok := requireMembership(c, h.teamService, teamID, userID); !ok {
		return
	}

	rule, err := h.ruleService.GetByID(context.Background(), teamID, ruleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, ruleResponse(rule))
}

func (h *RuleHandler) Update(c *drift.Context) {
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

	ruleID, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		c.BadRequest("invalid rule id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	var req dto.UpdateRuleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	rule, err := h.ruleService.Update(context.Background(), teamID, ruleID, member.Role, services.UpdateRuleInput{
		Label:    req.Label,
		Amount:   req.Amount,
		Category: req.Category,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, ruleResponse(rule))
}

func (h *RuleHandler) Deactivate(c *drift.Context) {
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

	ruleID, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		c.BadRequest("invalid rule id")
		return
	}

	member, ok := requireMembership(c, h.teamService, teamID, userID)
	if !ok {
		return
	}

	if err := h.ruleService.Deactivate(context.Background(), teamID, ruleID, member.Role); err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "rule deactivated"})
}
