package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/middleware"
	"github.com/kassenwart/finepot-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type ActivityHandler struct {
	teamService     TeamServiceInterface
	activityService ActivityServiceInterface
}

func NewActivityHandler(teamService TeamServiceInterface, activityService ActivityServiceInterface) *ActivityHandler {
	return &ActivityHandler{
		teamService:     teamService,
		activityService: activityService,
	}
}

func (h *ActivityHandler) List(c *drift.Context) {
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

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.BadRequest("invalid limit")
			return
		}
	}

	activities, err := h.activityService.ListByTeam(context.Background(), teamID, limit)
	if err != nil {
		c.InternalServerError("failed to list activity")
		return
	}

	response := make([]dto.ActivityResponse, len(activities))
	for i, a := range activities {
		response[i] = dto.ActivityResponse{
			ID:        a.ID,
			TeamID:    a.TeamID,
			ActorID:   a.ActorID,
			Type:      a.Type,
			Payload:   a.Payload,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		}
	}

	_ = c.JSON(200, response)
}
