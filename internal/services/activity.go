package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kassenwart/finepot-api/internal/database"
	"github.com/kassenwart/finepot-api/internal/models"
)

// recordActivity writes one activity row on the caller's transaction so the
// entry commits or rolls back together with the mutation it describes.
func recordActivity(ctx context.Context, tx pgx.Tx, teamID, actorID uuid.UUID, activityType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal activity payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO activities (team_id, actor_id, type, payload)
		VALUES ($1, $2, $3, $4)
	`, teamID, actorID, activityType, data)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

type ActivityService struct {
	db *database.DB
}

func NewActivityService(db *database.DB) *ActivityService {
	return &ActivityService{db: db}
}

const defaultActivityLimit = 50
const maxActivityLimit = 200

func (s *ActivityService) ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > maxActivityLimit {
		limit = defaultActivityLimit
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, team_id, actor_id, type, payload, created_at
		FROM activities
		WHERE team_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, teamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.TeamID, &a.ActorID, &a.Type, &a.Payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}
