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

type PaymentHandler struct {
	teamService   TeamServiceInterface
	ledgerService LedgerServiceInterface
	hub           HubInterface
}

func NewPaymentHandler(teamService TeamServiceInterface, ledgerService LedgerServiceInterface, hub HubInterface) *PaymentHandler {
	return &PaymentHandler{
		teamService:   teamService,
		ledgerService: ledgerService,
		hub:           hub,
	}
}

func paymentResponse(payment *models.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:         payment.ID,
		TeamID:     payment.TeamID,
		FineID:     payment.FineID,
		PayerID:    payment.PayerID,
		Amount:     payment.Amount,
		Method:     payment.Method,
		Note:       payment.Note,
		RecordedBy: payment.RecordedBy,
		CreatedAt:  payment.CreatedAt.Format(time.RFC3339),
	}
}

func (h *PaymentHandler) Record(c *drift.Context) {
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

	var req dto.RecordPaymentRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.PayerID == uuid.Nil {
		c.BadRequest("payer_id is required")
		return
	}

	result, err := h.ledgerService.RecordPayment(context.Background(), services.RecordPaymentInput{
		TeamID:       teamID,
		PayerID:      req.PayerID,
		FineID:       req.FineID,
		Amount:       req.Amount,
		Method:       req.Method,
		Note:         req.Note,
		RecordedBy:   userID,
		RecorderRole: member.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	finesSettled := 0
	for i := range result.Payments {
		if result.Payments[i].FineID != nil {
			finesSettled++
		}
	}
	h.hub.BroadcastPaymentRecorded(teamID, req.PayerID, req.Amount, finesSettled, result.CreditAdded)

	response := dto.PaymentResultResponse{
		Payments:     make([]dto.PaymentResponse, 0, len(result.Payments)),
		TotalApplied: result.TotalApplied,
		CreditAdded:  result.CreditAdded,
	}
	for i := range result.Payments {
		response.Payments = append(response.Payments, paymentResponse(&result.Payments[i]))
	}

	_ = c.JSON(201, response)
}

func (h *PaymentHandler) List(c *drift.Context) {
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

	var fineID *uuid.UUID
	if raw := c.QueryParam("fine_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.BadRequest("invalid fine id")
			return
		}
		fineID = &parsed
	}

	payments, err := h.ledgerService.ListPayments(context.Background(), teamID, fineID)
	if err != nil {
		c.InternalServerError("failed to list payments")
		return
	}

	response := make([]dto.PaymentResponse, len(payments))
	for i := range payments {
		response[i] = paymentResponse(&payments[i])
	}

	_ = c.JSON(200, response)
}
