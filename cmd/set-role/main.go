package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/config"
	"github.com/kassenwart/finepot-api/internal/database"
	"github.com/kassenwart/finepot-api/internal/models"
)

// set-role is an operator escape hatch for teams that locked themselves
// out, e.g. when the only admin left the club. It bypasses the last-admin
// guard on purpose.
func main() {
	if len(os.Args) != 4 {
		fmt.Println("Usage: set-role <team-id> <email> <admin|treasurer|member>")
		os.Exit(1)
	}

	teamID, err := uuid.Parse(os.Args[1])
	if err != nil {
		log.Fatalf("Invalid team id: %v", err)
	}
	email := os.Args[2]
	role := os.Args[3]

	switch role {
	case models.RoleAdmin, models.RoleTreasurer, models.RoleMember:
	default:
		log.Fatalf("Unknown role: %s", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	result, err := db.Pool.Exec(ctx, `
		UPDATE team_members SET role = $1
		WHERE team_id = $2
		  AND is_deleted = FALSE
		  AND user_id = (SELECT id FROM users WHERE email = $3)
	`, role, teamID, email)
	if err != nil {
		log.Fatalf("Failed to update membership: %v", err)
	}

	if result.RowsAffected() == 0 {
		log.Fatalf("No active member with email %s in team %s", email, teamID)
	}

	fmt.Printf("Set %s to %s in team %s\n", email, role, teamID)
}
