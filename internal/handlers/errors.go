package handlers

import (
	"errors"
	"log/slog"

	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

// respondServiceError translates service sentinels into the {code, message}
// error envelope. Anything unrecognized is a 500 with the detail kept out of
// the response body.
func respondServiceError(c *drift.Context, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrNotOffender),
		errors.Is(err, services.ErrOwnDispute),
		errors.Is(err, services.ErrAlreadyVoted):
		writeError(c, 403, "FORBIDDEN", err)

	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidSettings),
		errors.Is(err, services.ErrWeakPassword):
		writeError(c, 400, "INVALID_INPUT", err)

	case errors.Is(err, services.ErrInvalidOffender):
		writeError(c, 400, "INVALID_OFFENDER", err)

	case errors.Is(err, services.ErrInvalidRule):
		writeError(c, 400, "INVALID_RULE", err)

	case errors.Is(err, services.ErrTeamClosed),
		errors.Is(err, services.ErrDisputesDisabled),
		errors.Is(err, services.ErrWrongDisputeMode),
		errors.Is(err, services.ErrDisputeExists),
		errors.Is(err, services.ErrDisputeNotPending),
		errors.Is(err, services.ErrLastAdmin):
		writeError(c, 409, "INVALID_STATE", err)

	case errors.Is(err, services.ErrAlreadyPaid):
		writeError(c, 409, "ALREADY_PAID", err)

	case errors.Is(err, services.ErrNoUnpaidFines):
		writeError(c, 409, "NO_UNPAID_FINES", err)

	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrEmailExists),
		errors.Is(err, services.ErrConflict):
		writeError(c, 409, "CONFLICT", err)

	case errors.Is(err, services.ErrFineNotFound):
		writeError(c, 404, "FINE_NOT_FOUND", err)

	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrRuleNotFound),
		errors.Is(err, services.ErrDisputeNotFound),
		errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrUserNotFound):
		writeError(c, 404, "NOT_FOUND", err)

	default:
		slog.Error("unhandled service error", "error", err)
		_ = c.JSON(500, dto.ErrorResponse{Code: "INTERNAL", Message: "internal server error"})
	}
}

func writeError(c *drift.Context, status int, code string, err error) {
	_ = c.JSON(status, dto.ErrorResponse{Code: code, Message: err.Error()})
}
