package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kassenwart/finepot-api/internal/database"
	"github.com/kassenwart/finepot-api/internal/models"
)

var ErrRuleNotFound = errors.New("rule not found")

const ruleColumns = `id, team_id, label, amount, category, is_active, created_at, updated_at`

type RuleService struct {
	db *database.DB
}

func NewRuleService(db *database.DB) *RuleService {
	return &RuleService{db: db}
}

func scanRule(row pgx.Row) (*models.FineRule, error) {
	var rule models.FineRule
	err := row.Scan(
		&rule.ID, &rule.TeamID, &rule.Label, &rule.Amount, &rule.Category,
		&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (s *RuleService) Create(ctx context.Context, teamID uuid.UUID, actorRole, label string, amount float64, category string) (*models.FineRule, error) {
	if !models.CanManagePot(actorRole) {
		return nil, ErrForbidden
	}
	if label == "" || amount <= 0 {
		return nil, ErrInvalidInput
	}

	rule, err := scanRule(s.db.Pool.QueryRow(ctx, `
		INSERT INTO fine_rules (team_id, label, amount, category)
		VALUES ($1, $2, $3, $4)
		RETURNING `+ruleColumns+`
	`, teamID, label, amount, category))
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

// UpdateRuleInput patches a rule; nil fields are left unchanged.
type UpdateRuleInput struct {
	Label    *string
	Amount   *float64
	Category *string
}

func (s *RuleService) Update(ctx context.Context, teamID, ruleID uuid.UUID, actorRole string, in UpdateRuleInput) (*models.FineRule, error) {
	if !models.CanManagePot(actorRole) {
		return nil, ErrForbidden
	}
	if in.Label != nil && *in.Label == "" {
		return nil, ErrInvalidInput
	}
	if in.Amount != nil && *in.Amount <= 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rule, err := scanRule(tx.QueryRow(ctx, `
		SELECT `+ruleColumns+` FROM fine_rules WHERE id = $1 AND team_id = $2 FOR UPDATE
	`, ruleID, teamID))
	if err != nil {
		return nil, err
	}

	if in.Label != nil {
		rule.Label = *in.Label
	}
	if in.Amount != nil {
		rule.Amount = *in.Amount
	}
	if in.Category != nil {
		rule.Category = *in.Category
	}

	rule, err = scanRule(tx.QueryRow(ctx, `
		UPDATE fine_rules SET label = $1, amount = $2, category = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+ruleColumns+`
	`, rule.Label, rule.Amount, rule.Category, ruleID))
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rule, nil
}

// Deactivate soft-deletes a rule. Rules are never hard-deleted because
// historical fines keep referencing them.
func (s *RuleService) Deactivate(ctx context.Context, teamID, ruleID uuid.UUID, actorRole string) error {
	if !models.CanManagePot(actorRole) {
		return ErrForbidden
	}

	result, err := s.db.Pool.Exec(ctx, `
		UPDATE fine_rules SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND team_id = $2
	`, ruleID, teamID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *RuleService) GetByID(ctx context.Context, teamID, ruleID uuid.UUID) (*models.FineRule, error) {
	return scanRule(s.db.Pool.QueryRow(ctx, `
		SELECT `+ruleColumns+` FROM fine_rules WHERE id = $1 AND team_id = $2
	`, ruleID, teamID))
}

func (s *RuleService) List(ctx context.Context, teamID uuid.UUID, includeInactive bool) ([]models.FineRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM fine_rules WHERE team_id = $1`
	if !includeInactive {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.FineRule
	for rows.Next() {
		var rule models.FineRule
		if err := rows.Scan(
			&rule.ID, &rule.TeamID, &rule.Label, &rule.Amount, &rule.Category,
			&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
