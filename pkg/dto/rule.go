package dto

import "github.com/google/uuid"

type CreateRuleRequest struct {
	Label    string  `json:"label"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

type UpdateRuleRequest struct {
	Label    *string  `json:"label,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
	Category *string  `json:"category,omitempty"`
}

type RuleResponse struct {
	ID       uuid.UUID `json:"id"`
	TeamID   uuid.UUID `json:"team_id"`
	Label    string    `json:"label"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	IsActive bool      `json:"is_active"`
}
